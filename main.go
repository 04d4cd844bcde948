package main

import "incus-sync/cmd"

func main() {
	cmd.Execute()
}

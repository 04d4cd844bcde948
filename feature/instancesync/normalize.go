package instancesync

import (
	"net/netip"
	"sort"
	"strings"

	"incus-sync/core/incus"
	"incus-sync/core/utils"
	"incus-sync/feature/inventory/models"
)

const zeroMAC = "00:00:00:00:00:00"

// Normalize maps a raw Incus instance to its canonical form. It is pure:
// the same input always yields the same output, with interfaces sorted by
// name and disks sorted by key.
func Normalize(host string, raw incus.RawInstance) (CanonicalInstance, []CanonicalInterface, []CanonicalDisk) {
	cfg := raw.EffectiveConfig()
	devices := raw.EffectiveDevices()

	inst := CanonicalInstance{
		Key:       InstanceKey{Host: host, Name: raw.Name},
		RawStatus: rawStatus(raw),
		Type:      raw.Type,
		Image:     imageName(cfg),
		Location:  raw.Location,
		UUID:      cfg["volatile.uuid"],
		CreatedAt: raw.CreatedAt.UTC(),
	}
	if strings.EqualFold(inst.RawStatus, "running") {
		inst.Status = models.StatusActive
	} else {
		inst.Status = models.StatusOffline
	}
	if n, ok := utils.ParseCPUCount(cfg["limits.cpu"]); ok {
		inst.VCPUs = &n
	}
	if n, ok := utils.ParseBytes(cfg["limits.memory"]); ok {
		inst.Memory = &n
	}
	if len(raw.Profiles) > 0 {
		inst.Profiles = append([]string(nil), raw.Profiles...)
	}

	disks := normalizeDisks(raw, devices)
	for _, d := range disks {
		if d.Role == DiskRoleRoot {
			inst.Disk = d.Size
			break
		}
	}

	return inst, normalizeInterfaces(raw, cfg, devices), disks
}

func rawStatus(raw incus.RawInstance) string {
	if raw.Status != "" {
		return raw.Status
	}
	if raw.State != nil {
		return raw.State.Status
	}
	return ""
}

func imageName(cfg map[string]string) string {
	if d := cfg["image.description"]; d != "" {
		return d
	}
	if osRelease := strings.TrimSpace(cfg["image.os"] + " " + cfg["image.release"]); osRelease != "" {
		return osRelease
	}
	return cfg["volatile.base_image"]
}

func normalizeDisks(raw incus.RawInstance, devices map[string]map[string]string) []CanonicalDisk {
	names := sortedDevices(devices, "disk")
	seen := make(map[string]bool, len(names))
	disks := make([]CanonicalDisk, 0, len(names))
	for _, name := range names {
		dev := devices[name]
		d := CanonicalDisk{
			Device:    name,
			Pool:      dev["pool"],
			Source:    dev["source"],
			MountPath: dev["path"],
			Role:      DiskRoleData,
		}
		if d.MountPath == "/" {
			d.Role = DiskRoleRoot
		}
		switch {
		case d.MountPath != "":
			d.Key = d.MountPath
		case d.Source != "":
			d.Key = d.Source
		default:
			d.Key = name
		}
		if seen[d.Key] {
			continue
		}
		seen[d.Key] = true

		size := dev["size"]
		if size == "" {
			size = raw.VolumeSizes[name]
		}
		if n, ok := utils.ParseBytes(size); ok {
			d.Size = &n
		}
		disks = append(disks, d)
	}
	sort.Slice(disks, func(i, j int) bool { return disks[i].Key < disks[j].Key })
	return disks
}

func normalizeInterfaces(raw incus.RawInstance, cfg map[string]string, devices map[string]map[string]string) []CanonicalInterface {
	byName := make(map[string]*CanonicalInterface)

	if raw.State != nil {
		for name, st := range raw.State.Network {
			if name == "lo" || st.Type == "loopback" {
				continue
			}
			enabled := st.State == "up"
			iface := &CanonicalInterface{
				Name:          name,
				MAC:           normalizeMAC(st.Hwaddr),
				HostInterface: st.HostName,
				Enabled:       &enabled,
				IPs:           normalizeAddresses(st.Addresses),
			}
			if st.Mtu > 0 {
				mtu := st.Mtu
				iface.MTU = &mtu
			}
			byName[name] = iface
		}
	}

	for _, devName := range sortedDevices(devices, "nic") {
		dev := devices[devName]
		mac := normalizeMAC(dev["hwaddr"])
		if mac == nil {
			mac = normalizeMAC(cfg["volatile."+devName+".hwaddr"])
		}
		guest := dev["name"]
		if guest == "" {
			guest = devName
		}

		iface := matchInterface(byName, mac, guest)
		if iface == nil {
			iface = &CanonicalInterface{Name: guest, MAC: mac}
			byName[guest] = iface
		}
		if iface.MAC == nil {
			iface.MAC = mac
		}
		iface.Bridge = dev["network"]
		if iface.Bridge == "" {
			iface.Bridge = dev["parent"]
		}
		iface.NICType = dev["nictype"]
		if iface.HostInterface == "" {
			iface.HostInterface = dev["host_name"]
		}
		if iface.HostInterface == "" {
			iface.HostInterface = cfg["volatile."+devName+".host_name"]
		}
	}

	out := make([]CanonicalInterface, 0, len(byName))
	for _, iface := range byName {
		out = append(out, *iface)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// matchInterface finds the live interface of a NIC device, by MAC first
// since guests may rename interfaces, then by name.
func matchInterface(byName map[string]*CanonicalInterface, mac *string, name string) *CanonicalInterface {
	if mac != nil {
		names := make([]string, 0, len(byName))
		for n := range byName {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			if iface := byName[n]; iface.MAC != nil && *iface.MAC == *mac {
				return iface
			}
		}
	}
	return byName[name]
}

func normalizeAddresses(addrs []incus.NetworkAddress) []CanonicalIP {
	var out []CanonicalIP
	seen := make(map[string]bool)
	for _, a := range addrs {
		if a.Scope == "link" || a.Scope == "local" {
			continue
		}
		prefix, err := netip.ParsePrefix(a.Address + "/" + a.Netmask)
		if err != nil {
			continue
		}
		cidr := prefix.String()
		if seen[cidr] {
			continue
		}
		seen[cidr] = true

		family := 4
		if prefix.Addr().Is6() && !prefix.Addr().Is4In6() {
			family = 6
		}
		out = append(out, CanonicalIP{Address: cidr, Family: family, Global: a.Scope == "global"})
	}
	return out
}

func normalizeMAC(mac string) *string {
	m := strings.ToUpper(strings.TrimSpace(mac))
	if m == "" || m == zeroMAC {
		return nil
	}
	return &m
}

func sortedDevices(devices map[string]map[string]string, typ string) []string {
	var names []string
	for name, dev := range devices {
		if dev["type"] == typ {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

package inventory_test

import (
	"context"
	"testing"

	"incus-sync/feature/inventory"
	"incus-sync/feature/inventory/inventorytest"
	"incus-sync/feature/inventory/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestGormStore_VirtualMachineIdentity(t *testing.T) {
	store, _, _ := inventorytest.NewStore(t)
	ctx := context.Background()

	vm := &models.VirtualMachine{SourceHost: "node-a", Name: "web-01", Status: models.StatusActive}
	require.NoError(t, store.CreateVirtualMachine(ctx, vm))
	assert.NotZero(t, vm.ID)

	// Same name on another host is a different machine.
	other := &models.VirtualMachine{SourceHost: "node-b", Name: "web-01", Status: models.StatusActive}
	require.NoError(t, store.CreateVirtualMachine(ctx, other))

	dup := &models.VirtualMachine{SourceHost: "node-a", Name: "web-01", Status: models.StatusOffline}
	assert.ErrorIs(t, store.CreateVirtualMachine(ctx, dup), inventory.ErrConflict)

	found, err := store.FindVirtualMachine(ctx, "node-a", "web-01")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, vm.ID, found.ID)

	missing, err := store.FindVirtualMachine(ctx, "node-a", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := store.ListVirtualMachines(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGormStore_UpdateTouchesOnlyGivenColumns(t *testing.T) {
	store, db, _ := inventorytest.NewStore(t)
	ctx := context.Background()

	vm := &models.VirtualMachine{SourceHost: "node-a", Name: "web-01", Status: models.StatusActive}
	require.NoError(t, store.CreateVirtualMachine(ctx, vm))
	require.NoError(t, db.Model(&models.VirtualMachine{}).Where("id = ?", vm.ID).Update("comments", "owned by ops").Error)

	require.NoError(t, store.UpdateVirtualMachine(ctx, vm.ID, map[string]any{"status": models.StatusOffline}))

	found, err := store.FindVirtualMachine(ctx, "node-a", "web-01")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOffline, found.Status)
	assert.Equal(t, "owned by ops", found.Comments)
}

func TestGormStore_CustomFields(t *testing.T) {
	store, _, _ := inventorytest.NewStore(t)
	ctx := context.Background()

	vm := &models.VirtualMachine{SourceHost: "node-a", Name: "web-01", Status: models.StatusActive}
	require.NoError(t, store.CreateVirtualMachine(ctx, vm))

	require.NoError(t, store.SetCustomFields(ctx, models.ObjectVirtualMachine, vm.ID, map[string]*string{
		"incus_type":  strPtr("container"),
		"incus_image": strPtr("Debian 12"),
		"owner":       strPtr("team-a"),
	}))
	require.NoError(t, store.SetCustomFields(ctx, models.ObjectVirtualMachine, vm.ID, map[string]*string{
		"incus_image": strPtr("Debian 13"),
		"incus_type":  nil,
	}))

	found, err := store.FindVirtualMachine(ctx, "node-a", "web-01")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"incus_image": "Debian 13", "owner": "team-a"}, found.CustomFields)
}

func TestGormStore_Clusters(t *testing.T) {
	store, _, _ := inventorytest.NewStore(t)
	ctx := context.Background()

	ct, err := store.EnsureClusterType(ctx, "incus", "Incus")
	require.NoError(t, err)
	again, err := store.EnsureClusterType(ctx, "incus", "Incus")
	require.NoError(t, err)
	assert.Equal(t, ct.ID, again.ID)

	c := &models.Cluster{Name: "prod", TypeID: ct.ID}
	require.NoError(t, store.CreateCluster(ctx, c))
	assert.ErrorIs(t, store.CreateCluster(ctx, &models.Cluster{Name: "prod", TypeID: ct.ID}), inventory.ErrConflict)

	found, err := store.FindCluster(ctx, ct.ID, "prod")
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	byID, err := store.GetCluster(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "prod", byID.Name)
}

func TestGormStore_Tags(t *testing.T) {
	store, _, counter := inventorytest.NewStore(t)
	ctx := context.Background()

	managed, err := store.EnsureTag(ctx, "incus-managed", "Managed by Incus Sync", "4caf50")
	require.NoError(t, err)
	again, err := store.EnsureTag(ctx, "incus-managed", "Renamed", "000000")
	require.NoError(t, err)
	assert.Equal(t, managed.ID, again.ID)
	assert.Equal(t, "Managed by Incus Sync", again.Name)
	vmTag, err := store.EnsureTag(ctx, "incus-vm", "Incus Virtual Machine", "9c27b0")
	require.NoError(t, err)

	vm := &models.VirtualMachine{SourceHost: "node-a", Name: "web-01", Status: models.StatusActive}
	require.NoError(t, store.CreateVirtualMachine(ctx, vm))
	require.NoError(t, store.AddMachineTags(ctx, vm.ID, []uint{vmTag.ID, managed.ID}))
	require.NoError(t, store.AddMachineTags(ctx, vm.ID, []uint{managed.ID}), "assigning twice is a no-op")

	tags, err := store.ListMachineTags(ctx, vm.ID)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "incus-managed", tags[0].Slug)
	assert.Equal(t, "incus-vm", tags[1].Slug)

	require.NoError(t, store.RemoveMachineTags(ctx, vm.ID, []uint{vmTag.ID}))
	tags, err = store.ListMachineTags(ctx, vm.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, managed.ID, tags[0].ID)

	counter.Reset()
	require.NoError(t, store.AddMachineTags(ctx, vm.ID, nil))
	require.NoError(t, store.RemoveMachineTags(ctx, vm.ID, nil))
	assert.Zero(t, counter.Count())
}

func TestGormStore_Children(t *testing.T) {
	store, _, _ := inventorytest.NewStore(t)
	ctx := context.Background()

	vm := &models.VirtualMachine{SourceHost: "node-a", Name: "web-01", Status: models.StatusActive}
	require.NoError(t, store.CreateVirtualMachine(ctx, vm))

	iface := &models.VMInterface{VirtualMachineID: vm.ID, Name: "eth0", Enabled: true}
	require.NoError(t, store.CreateInterface(ctx, iface))
	assert.ErrorIs(t, store.CreateInterface(ctx, &models.VMInterface{VirtualMachineID: vm.ID, Name: "eth0"}), inventory.ErrConflict)
	require.NoError(t, store.SetCustomFields(ctx, models.ObjectVMInterface, iface.ID, map[string]*string{"incus_bridge": strPtr("incusbr0")}))

	ip := &models.IPAddress{Address: "10.0.0.5/24", Family: 4, Status: "active", AssignedInterfaceID: &iface.ID}
	require.NoError(t, store.CreateIPAddress(ctx, ip))

	ifaces, err := store.ListInterfaces(ctx, vm.ID)
	require.NoError(t, err)
	require.Len(t, ifaces, 1)
	assert.Equal(t, "incusbr0", ifaces[0].CustomFields["incus_bridge"])

	ips, err := store.ListIPAddresses(ctx, []uint{iface.ID})
	require.NoError(t, err)
	require.Len(t, ips, 1)

	require.NoError(t, store.UpdateVirtualMachine(ctx, vm.ID, map[string]any{"primary_ip4_id": ip.ID}))

	require.NoError(t, store.DeleteInterface(ctx, iface.ID))
	ifaces, err = store.ListInterfaces(ctx, vm.ID)
	require.NoError(t, err)
	assert.Empty(t, ifaces)
	reread, err := store.FindVirtualMachine(ctx, "node-a", "web-01")
	require.NoError(t, err)
	assert.Nil(t, reread.PrimaryIP4ID)
	ips, err = store.ListIPAddresses(ctx, []uint{iface.ID})
	require.NoError(t, err)
	assert.Empty(t, ips)

	size := int64(10_000_000_000)
	disk := &models.VirtualDisk{VirtualMachineID: vm.ID, Key: "/", Name: "root", Size: &size}
	require.NoError(t, store.CreateDisk(ctx, disk))
	require.NoError(t, store.UpdateDisk(ctx, disk.ID, map[string]any{"size": int64(20_000_000_000)}))
	disks, err := store.ListDisks(ctx, vm.ID)
	require.NoError(t, err)
	require.Len(t, disks, 1)
	assert.Equal(t, int64(20_000_000_000), *disks[0].Size)

	require.NoError(t, store.DeleteDisk(ctx, disk.ID))
	disks, err = store.ListDisks(ctx, vm.ID)
	require.NoError(t, err)
	assert.Empty(t, disks)
}

func TestGormStore_Journal(t *testing.T) {
	store, _, counter := inventorytest.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddJournalEntry(ctx, &models.JournalEntry{VirtualMachineID: 7, Kind: models.JournalInfo, Comments: "first"}))
	require.NoError(t, store.AddJournalEntry(ctx, &models.JournalEntry{VirtualMachineID: 7, Kind: models.JournalWarning, Comments: "second"}))
	assert.Equal(t, int64(2), counter.Count())

	entries, err := store.ListJournalEntries(ctx, 7)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Comments)
}

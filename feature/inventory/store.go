package inventory

import (
	"context"
	"errors"

	"incus-sync/core/database"
	"incus-sync/feature/inventory/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrConflict is returned when a create collides with a unique constraint.
var ErrConflict = errors.New("inventory: record already exists")

// Store is the inventory contract the sync engine writes through.
// Lookups return (nil, nil) when the record does not exist. Updates take
// column values and only touch those columns.
type Store interface {
	EnsureClusterType(ctx context.Context, slug, name string) (*models.ClusterType, error)
	FindCluster(ctx context.Context, typeID uint, name string) (*models.Cluster, error)
	GetCluster(ctx context.Context, id uint) (*models.Cluster, error)
	CreateCluster(ctx context.Context, c *models.Cluster) error

	FindVirtualMachine(ctx context.Context, host, name string) (*models.VirtualMachine, error)
	ListVirtualMachines(ctx context.Context, host string) ([]models.VirtualMachine, error)
	CreateVirtualMachine(ctx context.Context, vm *models.VirtualMachine) error
	UpdateVirtualMachine(ctx context.Context, id uint, values map[string]any) error

	ListInterfaces(ctx context.Context, vmID uint) ([]models.VMInterface, error)
	CreateInterface(ctx context.Context, iface *models.VMInterface) error
	UpdateInterface(ctx context.Context, id uint, values map[string]any) error
	DeleteInterface(ctx context.Context, id uint) error

	ListIPAddresses(ctx context.Context, interfaceIDs []uint) ([]models.IPAddress, error)
	CreateIPAddress(ctx context.Context, ip *models.IPAddress) error

	ListDisks(ctx context.Context, vmID uint) ([]models.VirtualDisk, error)
	CreateDisk(ctx context.Context, disk *models.VirtualDisk) error
	UpdateDisk(ctx context.Context, id uint, values map[string]any) error
	DeleteDisk(ctx context.Context, id uint) error

	EnsureTag(ctx context.Context, slug, name, color string) (*models.Tag, error)
	ListMachineTags(ctx context.Context, vmID uint) ([]models.Tag, error)
	AddMachineTags(ctx context.Context, vmID uint, tagIDs []uint) error
	RemoveMachineTags(ctx context.Context, vmID uint, tagIDs []uint) error

	CustomFields(ctx context.Context, objectType string, ids []uint) (map[uint]map[string]string, error)
	SetCustomFields(ctx context.Context, objectType string, id uint, values map[string]*string) error

	AddJournalEntry(ctx context.Context, entry *models.JournalEntry) error
	ListJournalEntries(ctx context.Context, vmID uint) ([]models.JournalEntry, error)
}

// GormStore implements Store on a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store on db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the inventory tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// EnsureClusterType returns the cluster type with slug, creating it if absent.
func (s *GormStore) EnsureClusterType(ctx context.Context, slug, name string) (*models.ClusterType, error) {
	var stored models.ClusterType
	found, err := first(s.db.WithContext(ctx).Where("slug = ?", slug), &stored)
	if err != nil || found != nil {
		return found, err
	}

	ct := models.ClusterType{Slug: slug, Name: name}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&ct).Error
	if err != nil && !database.IsDuplicate(err) {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *GormStore) FindCluster(ctx context.Context, typeID uint, name string) (*models.Cluster, error) {
	var c models.Cluster
	return first(s.db.WithContext(ctx).Where("type_id = ? AND name = ?", typeID, name), &c)
}

func (s *GormStore) GetCluster(ctx context.Context, id uint) (*models.Cluster, error) {
	var c models.Cluster
	return first(s.db.WithContext(ctx).Where("id = ?", id), &c)
}

func (s *GormStore) CreateCluster(ctx context.Context, c *models.Cluster) error {
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

func (s *GormStore) FindVirtualMachine(ctx context.Context, host, name string) (*models.VirtualMachine, error) {
	var vm models.VirtualMachine
	found, err := first(s.db.WithContext(ctx).Where("source_host = ? AND name = ?", host, name), &vm)
	if err != nil || found == nil {
		return found, err
	}
	cf, err := s.CustomFields(ctx, models.ObjectVirtualMachine, []uint{vm.ID})
	if err != nil {
		return nil, err
	}
	found.CustomFields = cf[vm.ID]
	return found, nil
}

func (s *GormStore) ListVirtualMachines(ctx context.Context, host string) ([]models.VirtualMachine, error) {
	var vms []models.VirtualMachine
	q := s.db.WithContext(ctx).Order("source_host, name")
	if host != "" {
		q = q.Where("source_host = ?", host)
	}
	err := q.Find(&vms).Error
	return vms, err
}

func (s *GormStore) CreateVirtualMachine(ctx context.Context, vm *models.VirtualMachine) error {
	return translate(s.db.WithContext(ctx).Create(vm).Error)
}

func (s *GormStore) UpdateVirtualMachine(ctx context.Context, id uint, values map[string]any) error {
	return s.update(ctx, &models.VirtualMachine{}, id, values)
}

func (s *GormStore) ListInterfaces(ctx context.Context, vmID uint) ([]models.VMInterface, error) {
	var ifaces []models.VMInterface
	if err := s.db.WithContext(ctx).Where("virtual_machine_id = ?", vmID).Order("name").Find(&ifaces).Error; err != nil {
		return nil, err
	}
	ids := make([]uint, len(ifaces))
	for i := range ifaces {
		ids[i] = ifaces[i].ID
	}
	cf, err := s.CustomFields(ctx, models.ObjectVMInterface, ids)
	if err != nil {
		return nil, err
	}
	for i := range ifaces {
		ifaces[i].CustomFields = cf[ifaces[i].ID]
	}
	return ifaces, nil
}

func (s *GormStore) CreateInterface(ctx context.Context, iface *models.VMInterface) error {
	return translate(s.db.WithContext(ctx).Create(iface).Error)
}

func (s *GormStore) UpdateInterface(ctx context.Context, id uint, values map[string]any) error {
	return s.update(ctx, &models.VMInterface{}, id, values)
}

// DeleteInterface removes the interface with its addresses and custom fields.
// Primary IP references to those addresses are cleared.
func (s *GormStore) DeleteInterface(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		addrs := tx.Model(&models.IPAddress{}).Select("id").Where("assigned_interface_id = ?", id)
		for _, col := range []string{"primary_ip4_id", "primary_ip6_id"} {
			if err := tx.Model(&models.VirtualMachine{}).Where(col+" IN (?)", addrs).Update(col, nil).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("assigned_interface_id = ?", id).Delete(&models.IPAddress{}).Error; err != nil {
			return err
		}
		if err := deleteCustomFields(tx, models.ObjectVMInterface, id); err != nil {
			return err
		}
		return tx.Delete(&models.VMInterface{}, id).Error
	})
}

func (s *GormStore) ListIPAddresses(ctx context.Context, interfaceIDs []uint) ([]models.IPAddress, error) {
	if len(interfaceIDs) == 0 {
		return nil, nil
	}
	var ips []models.IPAddress
	err := s.db.WithContext(ctx).Where("assigned_interface_id IN ?", interfaceIDs).Order("address").Find(&ips).Error
	return ips, err
}

func (s *GormStore) CreateIPAddress(ctx context.Context, ip *models.IPAddress) error {
	return translate(s.db.WithContext(ctx).Create(ip).Error)
}

func (s *GormStore) ListDisks(ctx context.Context, vmID uint) ([]models.VirtualDisk, error) {
	var disks []models.VirtualDisk
	if err := s.db.WithContext(ctx).Where("virtual_machine_id = ?", vmID).Order("disk_key").Find(&disks).Error; err != nil {
		return nil, err
	}
	ids := make([]uint, len(disks))
	for i := range disks {
		ids[i] = disks[i].ID
	}
	cf, err := s.CustomFields(ctx, models.ObjectVirtualDisk, ids)
	if err != nil {
		return nil, err
	}
	for i := range disks {
		disks[i].CustomFields = cf[disks[i].ID]
	}
	return disks, nil
}

func (s *GormStore) CreateDisk(ctx context.Context, disk *models.VirtualDisk) error {
	return translate(s.db.WithContext(ctx).Create(disk).Error)
}

func (s *GormStore) UpdateDisk(ctx context.Context, id uint, values map[string]any) error {
	return s.update(ctx, &models.VirtualDisk{}, id, values)
}

func (s *GormStore) DeleteDisk(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteCustomFields(tx, models.ObjectVirtualDisk, id); err != nil {
			return err
		}
		return tx.Delete(&models.VirtualDisk{}, id).Error
	})
}

// EnsureTag returns the tag with slug, creating it if absent. An existing
// tag keeps its name and color.
func (s *GormStore) EnsureTag(ctx context.Context, slug, name, color string) (*models.Tag, error) {
	var stored models.Tag
	found, err := first(s.db.WithContext(ctx).Where("slug = ?", slug), &stored)
	if err != nil || found != nil {
		return found, err
	}

	tag := models.Tag{Slug: slug, Name: name, Color: color}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error
	if err != nil && !database.IsDuplicate(err) {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListMachineTags returns the tags assigned to a machine, ordered by slug.
func (s *GormStore) ListMachineTags(ctx context.Context, vmID uint) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.WithContext(ctx).
		Joins("JOIN virtual_machine_tags ON virtual_machine_tags.tag_id = tags.id").
		Where("virtual_machine_tags.virtual_machine_id = ?", vmID).
		Order("tags.slug").
		Find(&tags).Error
	return tags, err
}

// AddMachineTags assigns tags to a machine. Existing assignments are kept.
func (s *GormStore) AddMachineTags(ctx context.Context, vmID uint, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]models.MachineTag, len(tagIDs))
	for i, id := range tagIDs {
		rows[i] = models.MachineTag{VirtualMachineID: vmID, TagID: id}
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// RemoveMachineTags unassigns tags from a machine. The tags themselves stay.
func (s *GormStore) RemoveMachineTags(ctx context.Context, vmID uint, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("virtual_machine_id = ? AND tag_id IN ?", vmID, tagIDs).
		Delete(&models.MachineTag{}).Error
}

// CustomFields loads the custom field values of the given objects, keyed by object id.
func (s *GormStore) CustomFields(ctx context.Context, objectType string, ids []uint) (map[uint]map[string]string, error) {
	out := make(map[uint]map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.CustomFieldValue
	if err := s.db.WithContext(ctx).Where("object_type = ? AND object_id IN ?", objectType, ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if out[row.ObjectID] == nil {
			out[row.ObjectID] = make(map[string]string)
		}
		out[row.ObjectID][row.Name] = row.Value
	}
	return out, nil
}

// SetCustomFields upserts each non-nil value and deletes each nil one.
// Fields not named in values are left alone.
func (s *GormStore) SetCustomFields(ctx context.Context, objectType string, id uint, values map[string]*string) error {
	if len(values) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var (
			upserts []models.CustomFieldValue
			deletes []string
		)
		for name, v := range values {
			if v == nil {
				deletes = append(deletes, name)
				continue
			}
			upserts = append(upserts, models.CustomFieldValue{ObjectType: objectType, ObjectID: id, Name: name, Value: *v})
		}
		if len(upserts) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "object_type"}, {Name: "object_id"}, {Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"value"}),
			}).Create(&upserts).Error
			if err != nil {
				return err
			}
		}
		if len(deletes) > 0 {
			err := tx.Where("object_type = ? AND object_id = ? AND name IN ?", objectType, id, deletes).
				Delete(&models.CustomFieldValue{}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) AddJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) ListJournalEntries(ctx context.Context, vmID uint) ([]models.JournalEntry, error) {
	var entries []models.JournalEntry
	err := s.db.WithContext(ctx).Where("virtual_machine_id = ?", vmID).Order("id").Find(&entries).Error
	return entries, err
}

func (s *GormStore) update(ctx context.Context, model any, id uint, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	return translate(s.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(values).Error)
}

func deleteCustomFields(tx *gorm.DB, objectType string, id uint) error {
	return tx.Where("object_type = ? AND object_id = ?", objectType, id).Delete(&models.CustomFieldValue{}).Error
}

func first[T any](q *gorm.DB, out *T) (*T, error) {
	err := q.First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func translate(err error) error {
	if database.IsDuplicate(err) {
		return ErrConflict
	}
	return err
}

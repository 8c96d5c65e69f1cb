package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// entity describes how a display name maps to a table row.
type entity struct {
	label  string
	table  string
	column string
}

var (
	neighborhoodEntity = entity{label: "neighborhood", table: "neighborhoods", column: "name"}
	propertyTypeEntity = entity{label: "property type", table: "property_types", column: "name"}
	ownerEntity        = entity{label: "owner", table: "owners", column: "full_name"}
	renterEntity       = entity{label: "renter", table: "renters", column: "full_name"}
	propertyEntity     = entity{label: "property", table: "properties"}
)

// resolveName returns the single id whose display column equals name. Owner
// and renter names are not unique, so a second match is reported as
// ErrAmbiguous instead of picking one.
func resolveName(tx *gorm.DB, e entity, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: %s name is required", ErrInvalidInput, e.label)
	}

	var ids []int64
	err := tx.Table(e.table).
		Where(e.column+" = ?", name).
		Order("id").
		Limit(2).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to look up %s: %w", e.label, err)
	}

	switch len(ids) {
	case 0:
		return 0, fmt.Errorf("%w: %s %q", ErrNotFound, e.label, name)
	case 1:
		return ids[0], nil
	default:
		return 0, fmt.Errorf("%w: more than one %s named %q", ErrAmbiguous, e.label, name)
	}
}

// requireID checks that a row with the given id exists.
func requireID(tx *gorm.DB, e entity, id int64) error {
	var count int64
	if err := tx.Table(e.table).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up %s: %w", e.label, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, e.label, id)
	}
	return nil
}

func (d *Database) resolve(ctx context.Context, e entity, name string) (int64, error) {
	var id int64
	err := d.ReadSnapshot(ctx, func(tx *gorm.DB) error {
		var err error
		id, err = resolveName(tx, e, name)
		return err
	})
	return id, err
}

// ResolveOwner returns the id of the owner with the given full name.
func (d *Database) ResolveOwner(ctx context.Context, fullName string) (int64, error) {
	return d.resolve(ctx, ownerEntity, fullName)
}

func (d *Database) ResolveRenter(ctx context.Context, fullName string) (int64, error) {
	return d.resolve(ctx, renterEntity, fullName)
}

func (d *Database) ResolveNeighborhood(ctx context.Context, name string) (int64, error) {
	return d.resolve(ctx, neighborhoodEntity, name)
}

func (d *Database) ResolvePropertyType(ctx context.Context, name string) (int64, error) {
	return d.resolve(ctx, propertyTypeEntity, name)
}

// IsNotFound reports whether err is a lookup miss, including gorm's own
// record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

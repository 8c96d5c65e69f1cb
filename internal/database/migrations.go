package database

import (
	"context"
	"fmt"

	"housinghistory/server/internal/models"
)

// RunMigrations creates or updates the housing schema. Reference tables come
// first so that foreign keys can be created.
func (d *Database) RunMigrations(ctx context.Context) error {
	tables := []interface{}{
		&models.Neighborhood{},
		&models.PropertyType{},
		&models.Owner{},
		&models.Renter{},
		&models.Property{},
		&models.Ownership{},
		&models.RentalDetail{},
		&models.DemographicInfo{},
		&models.DemographicGroup{},
	}

	for _, table := range tables {
		if err := d.orm.WithContext(ctx).AutoMigrate(table); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", table, err)
		}
	}

	// Turnover and rental reports group on these columns
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_ownerships_property_start ON ownerships(property_id, start_year)`,
		`CREATE INDEX IF NOT EXISTS idx_rental_details_property_end ON rental_details(property_id, end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_type_value ON properties(property_type_id, market_value)`,
	}
	for _, stmt := range indexes {
		if err := d.orm.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

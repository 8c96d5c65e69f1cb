package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"housinghistory/server/internal/models"
)

// CreateNeighborhood adds a neighborhood. Names are unique.
func (d *Database) CreateNeighborhood(ctx context.Context, in models.NameInput) (*models.WriteResult, error) {
	row := &models.Neighborhood{Name: strings.TrimSpace(in.Name)}
	return d.createNamed(ctx, in, row, func() int64 { return row.ID }, "Neighborhood")
}

// CreatePropertyType adds a property type. Names are unique.
func (d *Database) CreatePropertyType(ctx context.Context, in models.NameInput) (*models.WriteResult, error) {
	row := &models.PropertyType{Name: strings.TrimSpace(in.Name)}
	return d.createNamed(ctx, in, row, func() int64 { return row.ID }, "Property type")
}

func (d *Database) CreateOwner(ctx context.Context, in models.NameInput) (*models.WriteResult, error) {
	row := &models.Owner{FullName: strings.TrimSpace(in.Name)}
	return d.createNamed(ctx, in, row, func() int64 { return row.ID }, "Owner")
}

func (d *Database) CreateRenter(ctx context.Context, in models.NameInput) (*models.WriteResult, error) {
	row := &models.Renter{FullName: strings.TrimSpace(in.Name)}
	return d.createNamed(ctx, in, row, func() int64 { return row.ID }, "Renter")
}

func (d *Database) createNamed(ctx context.Context, in models.NameInput, row interface{}, id func() int64, label string) (*models.WriteResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	err := d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", strings.ToLower(label), translateWriteError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d.notice(id(), fmt.Sprintf("%s %q created", label, strings.TrimSpace(in.Name))), nil
}

// InsertProperty resolves the neighborhood and property type names and
// inserts the property.
func (d *Database) InsertProperty(ctx context.Context, in models.PropertyInput) (*models.WriteResult, error) {
	var property *models.Property
	err := d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		property, err = insertProperty(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Property %d inserted at %s", property.ID,
		models.FormatAddress(property.AddressLine1, property.AddressLine2, property.City, property.State, property.ZipCode))
	return d.notice(property.ID, msg), nil
}

// RecordOwnershipTransaction transfers a property to a new owner. The open
// ownership record, if any, is closed in the transfer year.
func (d *Database) RecordOwnershipTransaction(ctx context.Context, in models.OwnershipInput) (*models.WriteResult, error) {
	var ownership *models.Ownership
	err := d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ownership, err = recordOwnership(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Property %d transferred to %q in %d", in.PropertyID, strings.TrimSpace(in.OwnerName), in.Year)
	return d.notice(ownership.ID, msg), nil
}

// AddRentalDetail records a rental of a property to a renter.
func (d *Database) AddRentalDetail(ctx context.Context, in models.RentalInput) (*models.WriteResult, error) {
	var rental *models.RentalDetail
	err := d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rental, err = addRental(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Rental of property %d to %q starting %s recorded", in.PropertyID,
		strings.TrimSpace(in.RenterName), rental.StartDate.Format("2006-01-02"))
	return d.notice(rental.ID, msg), nil
}

// RecordDemographics stores a population survey of a neighborhood together
// with its diversity index.
func (d *Database) RecordDemographics(ctx context.Context, in models.DemographicInput) (*models.WriteResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var info *models.DemographicInfo
	err := d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		neighborhoodID, err := resolveName(tx, neighborhoodEntity, in.Neighborhood)
		if err != nil {
			return err
		}

		info = models.NewDemographicInfo(neighborhoodID, in.SurveyYear, in.Groups)
		if err := tx.Create(info).Error; err != nil {
			return fmt.Errorf("failed to record demographics: %w", translateWriteError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Demographics for %q (%d) recorded, diversity index %.4f",
		strings.TrimSpace(in.Neighborhood), in.SurveyYear, info.DiversityIndex)
	return d.notice(info.ID, msg), nil
}

func (d *Database) notice(id int64, msg string) *models.WriteResult {
	d.logger.WithField("id", id).Info(msg)
	return &models.WriteResult{ID: id, Message: msg}
}

func insertProperty(tx *gorm.DB, in models.PropertyInput) (*models.Property, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	neighborhoodID, err := resolveName(tx, neighborhoodEntity, in.Neighborhood)
	if err != nil {
		return nil, err
	}
	propertyTypeID, err := resolveName(tx, propertyTypeEntity, in.PropertyType)
	if err != nil {
		return nil, err
	}

	property := &models.Property{
		NeighborhoodID: neighborhoodID,
		PropertyTypeID: propertyTypeID,
		MarketValue:    in.MarketValue,
		AddressLine1:   strings.TrimSpace(in.AddressLine1),
		AddressLine2:   strings.TrimSpace(in.AddressLine2),
		City:           strings.TrimSpace(in.City),
		State:          strings.TrimSpace(in.State),
		ZipCode:        in.ZipCode,
		Bedrooms:       in.Bedrooms,
		Bathrooms:      in.Bathrooms,
		SquareFootage:  in.SquareFootage,
		YearBuilt:      in.YearBuilt,
	}
	if err := tx.Create(property).Error; err != nil {
		return nil, fmt.Errorf("failed to insert property: %w", translateWriteError(err))
	}
	return property, nil
}

func recordOwnership(tx *gorm.DB, in models.OwnershipInput) (*models.Ownership, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := requireID(tx, propertyEntity, in.PropertyID); err != nil {
		return nil, err
	}
	ownerID, err := resolveName(tx, ownerEntity, in.OwnerName)
	if err != nil {
		return nil, err
	}

	var latest models.Ownership
	err = tx.Where("property_id = ?", in.PropertyID).
		Order("start_year DESC").
		Order("id DESC").
		Take(&latest).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first recorded owner
	case err != nil:
		return nil, fmt.Errorf("failed to load current ownership: %w", err)
	case latest.EndYear == nil:
		if in.Year < latest.StartYear {
			return nil, fmt.Errorf("%w: transfer year %d is before the current ownership started in %d",
				ErrInvalidInput, in.Year, latest.StartYear)
		}
		if latest.OwnerID == ownerID {
			return nil, fmt.Errorf("%w: property %d is already owned by %q", ErrInvalidInput, in.PropertyID, in.OwnerName)
		}
		end := in.Year
		latest.EndYear = &end
		if err := tx.Save(&latest).Error; err != nil {
			return nil, fmt.Errorf("failed to close current ownership: %w", translateWriteError(err))
		}
	default:
		if in.Year < *latest.EndYear {
			return nil, fmt.Errorf("%w: transfer year %d is before the last ownership ended in %d",
				ErrInvalidInput, in.Year, *latest.EndYear)
		}
	}

	ownership := &models.Ownership{
		PropertyID: in.PropertyID,
		OwnerID:    ownerID,
		StartYear:  in.Year,
	}
	if err := tx.Create(ownership).Error; err != nil {
		return nil, fmt.Errorf("failed to record ownership: %w", translateWriteError(err))
	}
	return ownership, nil
}

func addRental(tx *gorm.DB, in models.RentalInput) (*models.RentalDetail, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.EndDate != nil && !in.EndDate.After(in.StartDate) {
		return nil, fmt.Errorf("%w: rental end date must be after its start date", ErrInvalidInput)
	}
	if err := requireID(tx, propertyEntity, in.PropertyID); err != nil {
		return nil, err
	}
	renterID, err := resolveName(tx, renterEntity, in.RenterName)
	if err != nil {
		return nil, err
	}

	rental := &models.RentalDetail{
		PropertyID:  in.PropertyID,
		RenterID:    renterID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		RentalPrice: in.RentalPrice,
	}
	if err := tx.Create(rental).Error; err != nil {
		return nil, fmt.Errorf("failed to add rental detail: %w", translateWriteError(err))
	}
	return rental, nil
}

// ApplyImportBatch applies every write of the batch using tx. The caller owns
// the transaction; any error leaves it to be rolled back.
func ApplyImportBatch(tx *gorm.DB, batch *models.ImportBatch) error {
	for i, in := range batch.Properties {
		if _, err := insertProperty(tx, in); err != nil {
			return fmt.Errorf("property %d: %w", i, err)
		}
	}
	for i, in := range batch.Ownerships {
		if _, err := recordOwnership(tx, in); err != nil {
			return fmt.Errorf("ownership %d: %w", i, err)
		}
	}
	for i, in := range batch.Rentals {
		if _, err := addRental(tx, in); err != nil {
			return fmt.Errorf("rental %d: %w", i, err)
		}
	}
	return nil
}

// ImportBatch applies a batch atomically.
func (d *Database) ImportBatch(ctx context.Context, batch *models.ImportBatch) error {
	err := d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ApplyImportBatch(tx, batch)
	})
	if err != nil {
		return err
	}
	d.logger.WithFields(logrus.Fields{
		"properties": len(batch.Properties),
		"ownerships": len(batch.Ownerships),
		"rentals":    len(batch.Rentals),
	}).Info("Import batch applied")
	return nil
}

// SeedReferenceData creates the neighborhoods and property types that do not
// exist yet and returns how many rows were added.
func (d *Database) SeedReferenceData(ctx context.Context, neighborhoods, propertyTypes []string) (int, error) {
	created := 0
	err := d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range neighborhoods {
			res := tx.Where(models.Neighborhood{Name: name}).FirstOrCreate(&models.Neighborhood{})
			if res.Error != nil {
				return fmt.Errorf("failed to seed neighborhood %q: %w", name, res.Error)
			}
			created += int(res.RowsAffected)
		}
		for _, name := range propertyTypes {
			res := tx.Where(models.PropertyType{Name: name}).FirstOrCreate(&models.PropertyType{})
			if res.Error != nil {
				return fmt.Errorf("failed to seed property type %q: %w", name, res.Error)
			}
			created += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"housinghistory/server/internal/models"
)

// Queries stick to SQL understood by both SQLite (3.25+) and PostgreSQL:
// CTEs, window functions, NULLIF/COALESCE and ? placeholders that gorm
// rewrites per dialect.

const ownershipTurnoverQuery = `
	WITH ownership_counts AS (
		SELECT
			o.property_id,
			COUNT(*) - 1 AS ownership_changes
		FROM ownerships o
		GROUP BY o.property_id
		HAVING COUNT(*) > 1
	)
	SELECT
		n.name AS neighborhood,
		AVG(oc.ownership_changes * 1.0) AS avg_ownership_changes,
		COUNT(*) AS property_count
	FROM ownership_counts oc
	JOIN properties p ON p.id = oc.property_id
	JOIN neighborhoods n ON n.id = p.neighborhood_id
	GROUP BY n.id, n.name
	ORDER BY avg_ownership_changes DESC, neighborhood ASC
`

const propertiesByOwnerQuery = `
	SELECT
		p.id AS property_id,
		n.name AS neighborhood,
		pt.name AS property_type,
		p.market_value,
		p.address_line1,
		p.address_line2,
		p.city,
		p.state,
		p.zip_code
	FROM properties p
	JOIN neighborhoods n ON n.id = p.neighborhood_id
	JOIN property_types pt ON pt.id = p.property_type_id
	WHERE p.id IN (
		SELECT o.property_id FROM ownerships o WHERE o.owner_id = ?
	)
	ORDER BY p.market_value DESC, p.id ASC
`

// Every neighborhood is listed; one without properties reports 0%.
const neverRentedQuery = `
	WITH rented AS (
		SELECT DISTINCT property_id FROM rental_details
	),
	totals AS (
		SELECT
			n.id AS neighborhood_id,
			n.name AS neighborhood,
			COUNT(p.id) AS total_properties,
			COALESCE(SUM(CASE WHEN p.id IS NOT NULL AND r.property_id IS NULL THEN 1 ELSE 0 END), 0) AS never_rented_count
		FROM neighborhoods n
		LEFT JOIN properties p ON p.neighborhood_id = n.id
		LEFT JOIN rented r ON r.property_id = p.id
		GROUP BY n.id, n.name
	)
	SELECT
		neighborhood,
		never_rented_count,
		total_properties,
		COALESCE((never_rented_count * 1.0 / NULLIF(total_properties, 0)) * 100, 0) AS never_rented_pct
	FROM totals
	ORDER BY never_rented_pct DESC, neighborhood ASC
`

const activeRentalIncomeQuery = `
	SELECT
		n.name AS neighborhood,
		SUM(r.rental_price) AS total_rental_income,
		COUNT(*) AS active_rentals
	FROM rental_details r
	JOIN properties p ON p.id = r.property_id
	JOIN neighborhoods n ON n.id = p.neighborhood_id
	WHERE r.end_date IS NULL OR r.end_date > ?
	GROUP BY n.id, n.name
	ORDER BY total_rental_income DESC, neighborhood ASC
`

const propertiesInNeighborhoodQuery = `
	SELECT
		p.id AS property_id,
		pt.name AS property_type,
		p.market_value,
		p.square_footage,
		p.price_per_sqft,
		p.address_line1,
		p.address_line2,
		p.city,
		p.state,
		p.zip_code
	FROM properties p
	JOIN property_types pt ON pt.id = p.property_type_id
	WHERE p.neighborhood_id = ?
	ORDER BY p.market_value DESC, p.id ASC
`

// RANK gives tied values the same rank and skips the following ranks, so
// a tie across the cut-off keeps every tied row.
const priceExtremesQuery = `
	WITH ranked AS (
		SELECT
			pt.name AS property_type,
			p.id AS property_id,
			p.market_value,
			n.name AS neighborhood,
			p.address_line1,
			p.address_line2,
			p.city,
			p.state,
			p.zip_code,
			RANK() OVER (PARTITION BY p.property_type_id ORDER BY p.market_value DESC) AS rank_desc,
			RANK() OVER (PARTITION BY p.property_type_id ORDER BY p.market_value ASC) AS rank_asc
		FROM properties p
		JOIN property_types pt ON pt.id = p.property_type_id
		JOIN neighborhoods n ON n.id = p.neighborhood_id
		WHERE p.market_value IS NOT NULL
	)
	SELECT * FROM (
		SELECT
			property_type, 'most expensive' AS category, rank_desc AS price_rank,
			property_id, market_value, neighborhood,
			address_line1, address_line2, city, state, zip_code
		FROM ranked
		WHERE rank_desc <= ?
		UNION ALL
		SELECT
			property_type, 'least expensive' AS category, rank_asc AS price_rank,
			property_id, market_value, neighborhood,
			address_line1, address_line2, city, state, zip_code
		FROM ranked
		WHERE rank_asc <= ?
	) extremes
	ORDER BY property_type ASC, category ASC, price_rank ASC, market_value DESC, property_id ASC
`

const latestDiversityQuery = `
	WITH latest AS (
		SELECT
			d.neighborhood_id,
			d.survey_year,
			d.total_population,
			d.diversity_index,
			ROW_NUMBER() OVER (PARTITION BY d.neighborhood_id ORDER BY d.survey_year DESC) AS rn
		FROM demographic_info d
	)
	SELECT
		n.name AS neighborhood,
		l.survey_year,
		l.total_population,
		l.diversity_index
	FROM latest l
	JOIN neighborhoods n ON n.id = l.neighborhood_id
	WHERE l.rn = 1
	ORDER BY l.diversity_index DESC, n.name ASC
`

const neighborhoodDiversityQuery = `
	SELECT
		n.name AS neighborhood,
		d.survey_year,
		d.total_population,
		d.diversity_index
	FROM demographic_info d
	JOIN neighborhoods n ON n.id = d.neighborhood_id
	WHERE d.neighborhood_id = ?
	ORDER BY d.survey_year DESC
`

// OwnershipTurnover averages ownership changes per neighborhood over the
// properties that changed hands at least once.
func (d *Database) OwnershipTurnover(ctx context.Context) ([]models.NeighborhoodTurnover, error) {
	rows := make([]models.NeighborhoodTurnover, 0)
	err := d.ReadSnapshot(ctx, func(tx *gorm.DB) error {
		return tx.Raw(ownershipTurnoverQuery).Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute ownership turnover: %w", err)
	}
	return rows, nil
}

// PropertiesByOwner resolves the owner name and lists every property the
// owner ever held. An unknown name fails with ErrNotFound and a shared name
// with ErrAmbiguous.
func (d *Database) PropertiesByOwner(ctx context.Context, fullName string) ([]models.OwnedProperty, error) {
	var rows []models.OwnedProperty
	err := d.ReadSnapshot(ctx, func(tx *gorm.DB) error {
		ownerID, err := resolveName(tx, ownerEntity, fullName)
		if err != nil {
			return err
		}
		rows, err = propertiesByOwner(tx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// PropertiesByOwnerID lists every property the owner ever held.
func (d *Database) PropertiesByOwnerID(ctx context.Context, ownerID int64) ([]models.OwnedProperty, error) {
	var rows []models.OwnedProperty
	err := d.ReadSnapshot(ctx, func(tx *gorm.DB) error {
		if err := requireID(tx, ownerEntity, ownerID); err != nil {
			return err
		}
		var err error
		rows, err = propertiesByOwner(tx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func propertiesByOwner(tx *gorm.DB, ownerID int64) ([]models.OwnedProperty, error) {
	rows := make([]models.OwnedProperty, 0)
	if err := tx.Raw(propertiesByOwnerQuery, ownerID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list properties of owner %d: %w", ownerID, err)
	}
	for i := range rows {
		rows[i].Address = rows[i].AddressParts.Line()
	}
	return rows, nil
}

// NeverRented reports, per neighborhood, how many properties never appeared
// in the rental table and what share of the neighborhood they are.
func (d *Database) NeverRented(ctx context.Context) ([]models.NeverRentedStats, error) {
	rows := make([]models.NeverRentedStats, 0)
	err := d.ReadSnapshot(ctx, func(tx *gorm.DB) error {
		return tx.Raw(neverRentedQuery).Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute never-rented properties: %w", err)
	}
	return rows, nil
}

// ActiveRentalIncome sums the price of rentals that have no end date or end
// strictly after asOf.
func (d *Database) ActiveRentalIncome(ctx context.Context, asOf time.Time) ([]models.RentalIncome, error) {
	rows := make([]models.RentalIncome, 0)
	err := d.ReadSnapshot(ctx, func(tx *gorm.DB) error {
		return tx.Raw(activeRentalIncomeQuery, asOf.UTC()).Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute active rental income: %w", err)
	}
	return rows, nil
}

// PropertiesInNeighborhood resolves the neighborhood name and lists its
// properties by market value.
func (d *Database) PropertiesInNeighborhood(ctx context.Context, name string) ([]models.NeighborhoodProperty, error) {
	var rows []models.NeighborhoodProperty
	err := d.ReadSnapshot(ctx, func(tx *gorm.DB) error {
		neighborhoodID, err := resolveName(tx, neighborhoodEntity, name)
		if err != nil {
			return err
		}
		rows, err = propertiesInNeighborhood(tx, neighborhoodID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (d *Database) PropertiesInNeighborhoodID(ctx context.Context, neighborhoodID int64) ([]models.NeighborhoodProperty, error) {
	var rows []models.NeighborhoodProperty
	err := d.ReadSnapshot(ctx, func(tx *gorm.DB) error {
		if err := requireID(tx, neighborhoodEntity, neighborhoodID); err != nil {
			return err
		}
		var err error
		rows, err = propertiesInNeighborhood(tx, neighborhoodID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func propertiesInNeighborhood(tx *gorm.DB, neighborhoodID int64) ([]models.NeighborhoodProperty, error) {
	rows := make([]models.NeighborhoodProperty, 0)
	if err := tx.Raw(propertiesInNeighborhoodQuery, neighborhoodID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list properties of neighborhood %d: %w", neighborhoodID, err)
	}
	for i := range rows {
		rows[i].Address = rows[i].AddressParts.Line()
	}
	return rows, nil
}

// PriceExtremes returns, per property type, the properties ranked within
// limit from the top and from the bottom by market value.
func (d *Database) PriceExtremes(ctx context.Context, limit int) ([]models.PriceExtreme, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: rank limit must be positive, got %d", ErrInvalidInput, limit)
	}

	rows := make([]models.PriceExtreme, 0)
	err := d.ReadSnapshot(ctx, func(tx *gorm.DB) error {
		return tx.Raw(priceExtremesQuery, limit, limit).Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute price extremes: %w", err)
	}
	for i := range rows {
		rows[i].Address = rows[i].AddressParts.Line()
	}
	return rows, nil
}

// LatestDiversity returns the most recent survey of every neighborhood that
// has one.
func (d *Database) LatestDiversity(ctx context.Context) ([]models.NeighborhoodDiversity, error) {
	rows := make([]models.NeighborhoodDiversity, 0)
	err := d.ReadSnapshot(ctx, func(tx *gorm.DB) error {
		return tx.Raw(latestDiversityQuery).Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute diversity: %w", err)
	}
	return rows, nil
}

// NeighborhoodDiversity lists every survey of a neighborhood, newest first.
func (d *Database) NeighborhoodDiversity(ctx context.Context, name string) ([]models.NeighborhoodDiversity, error) {
	rows := make([]models.NeighborhoodDiversity, 0)
	err := d.ReadSnapshot(ctx, func(tx *gorm.DB) error {
		neighborhoodID, err := resolveName(tx, neighborhoodEntity, name)
		if err != nil {
			return err
		}
		if err := tx.Raw(neighborhoodDiversityQuery, neighborhoodID).Scan(&rows).Error; err != nil {
			return fmt.Errorf("failed to list demographics: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

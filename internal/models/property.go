package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Neighborhood struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type PropertyType struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Property struct {
	ID             int64           `gorm:"primaryKey" json:"id"`
	NeighborhoodID int64           `gorm:"not null;index" json:"neighborhood_id"`
	PropertyTypeID int64           `gorm:"not null;index" json:"property_type_id"`
	MarketValue    decimal.Decimal `gorm:"type:decimal(14,2);not null;check:chk_properties_market_value,market_value > 0" json:"market_value"`
	AddressLine1   string          `gorm:"size:200;not null" json:"address_line1"`
	AddressLine2   string          `gorm:"size:200" json:"address_line2"`
	City           string          `gorm:"size:100;not null" json:"city"`
	State          string          `gorm:"size:50;not null" json:"state"`
	ZipCode        string          `gorm:"size:5;not null" json:"zip_code"`
	Bedrooms       int             `gorm:"not null;default:0;check:chk_properties_bedrooms,bedrooms >= 0" json:"bedrooms"`
	Bathrooms      int             `gorm:"not null;default:0;check:chk_properties_bathrooms,bathrooms >= 0" json:"bathrooms"`
	SquareFootage  int             `gorm:"not null;default:0;check:chk_properties_square_footage,square_footage >= 0" json:"square_footage"`
	PricePerSqFt   *float64        `gorm:"column:price_per_sqft" json:"price_per_sqft"`
	YearBuilt      *int            `json:"year_built"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Neighborhood *Neighborhood `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	PropertyType *PropertyType `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

// BeforeSave materializes the price per square foot.
func (p *Property) BeforeSave(tx *gorm.DB) error {
	p.PricePerSqFt = PricePerSqFt(p.MarketValue, p.SquareFootage)
	return nil
}

// PricePerSqFt divides the market value by the square footage. It is nil
// when the square footage is zero.
func PricePerSqFt(marketValue decimal.Decimal, squareFootage int) *float64 {
	if squareFootage <= 0 {
		return nil
	}
	v, _ := marketValue.Div(decimal.NewFromInt(int64(squareFootage))).Round(2).Float64()
	return &v
}

// FormatAddress builds the single-line address used in reports. The second
// address line is only included when it is not blank.
func FormatAddress(line1, line2, city, state, zip string) string {
	parts := make([]string, 0, 4)
	parts = append(parts, strings.TrimSpace(line1))
	if l2 := strings.TrimSpace(line2); l2 != "" {
		parts = append(parts, l2)
	}
	parts = append(parts, strings.TrimSpace(city))
	parts = append(parts, strings.TrimSpace(strings.TrimSpace(state)+" "+strings.TrimSpace(zip)))
	return strings.Join(parts, ", ")
}

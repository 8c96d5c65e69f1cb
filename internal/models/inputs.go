package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PropertyInput references its neighborhood and property type by name.
type PropertyInput struct {
	Neighborhood  string          `json:"neighborhood" validate:"required,max=100"`
	PropertyType  string          `json:"property_type" validate:"required,max=50"`
	MarketValue   decimal.Decimal `json:"market_value" validate:"gt=0"`
	AddressLine1  string          `json:"address_line1" validate:"required,max=200"`
	AddressLine2  string          `json:"address_line2" validate:"max=200"`
	City          string          `json:"city" validate:"required,max=100"`
	State         string          `json:"state" validate:"required,max=50"`
	ZipCode       string          `json:"zip_code" validate:"required,zipcode"`
	Bedrooms      int             `json:"bedrooms" validate:"gte=0"`
	Bathrooms     int             `json:"bathrooms" validate:"gte=0"`
	SquareFootage int             `json:"square_footage" validate:"gte=0"`
	YearBuilt     *int            `json:"year_built" validate:"omitempty,gt=0"`
}

// OwnershipInput records a transfer of PropertyID to OwnerName in Year.
type OwnershipInput struct {
	PropertyID int64  `json:"property_id" validate:"required,gt=0"`
	OwnerName  string `json:"owner_name" validate:"required,max=200"`
	Year       int    `json:"year" validate:"required,gt=0"`
}

type RentalInput struct {
	PropertyID  int64           `json:"property_id" validate:"required,gt=0"`
	RenterName  string          `json:"renter_name" validate:"required,max=200"`
	StartDate   time.Time       `json:"start_date" validate:"required"`
	EndDate     *time.Time      `json:"end_date"`
	RentalPrice decimal.Decimal `json:"rental_price" validate:"gt=0"`
}

type DemographicInput struct {
	Neighborhood string         `json:"neighborhood" validate:"required,max=100"`
	SurveyYear   int            `json:"survey_year" validate:"required,gt=0"`
	Groups       map[string]int `json:"groups" validate:"required,min=1,dive,keys,required,max=100,endkeys,gte=0"`
}

type NameInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

// ImportBatch is a set of writes applied in a single transaction, in the
// order properties, ownerships, rentals.
type ImportBatch struct {
	Properties []PropertyInput  `json:"properties"`
	Ownerships []OwnershipInput `json:"ownerships"`
	Rentals    []RentalInput    `json:"rentals"`
}

func (b *ImportBatch) Size() int {
	return len(b.Properties) + len(b.Ownerships) + len(b.Rentals)
}

// WriteResult is the notice returned by every write operation.
type WriteResult struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryMostExpensive  = "most expensive"
	CategoryLeastExpensive = "least expensive"
)

// AddressParts is scanned from report queries and folded into a single line.
type AddressParts struct {
	AddressLine1 string `json:"-"`
	AddressLine2 string `json:"-"`
	City         string `json:"-"`
	State        string `json:"-"`
	ZipCode      string `json:"-"`
}

func (a AddressParts) Line() string {
	return FormatAddress(a.AddressLine1, a.AddressLine2, a.City, a.State, a.ZipCode)
}

// NeighborhoodTurnover is a row of the ownership turnover report.
type NeighborhoodTurnover struct {
	Neighborhood        string  `json:"neighborhood"`
	AvgOwnershipChanges float64 `json:"avg_ownership_changes"`
	PropertyCount       int64   `json:"property_count"`
}

func (NeighborhoodTurnover) CSVHeader() []string {
	return []string{"neighborhood", "avg_ownership_changes", "property_count"}
}

func (r NeighborhoodTurnover) CSVRecord() []string {
	return []string{r.Neighborhood, formatFloat(r.AvgOwnershipChanges), strconv.FormatInt(r.PropertyCount, 10)}
}

// OwnedProperty is a property linked to an owner through any ownership
// record.
type OwnedProperty struct {
	PropertyID   int64           `json:"property_id"`
	Neighborhood string          `json:"neighborhood"`
	PropertyType string          `json:"property_type"`
	MarketValue  decimal.Decimal `json:"market_value"`
	Address      string          `gorm:"-" json:"address"`
	AddressParts `gorm:"embedded"`
}

func (OwnedProperty) CSVHeader() []string {
	return []string{"property_id", "neighborhood", "property_type", "market_value", "address"}
}

func (r OwnedProperty) CSVRecord() []string {
	return []string{strconv.FormatInt(r.PropertyID, 10), r.Neighborhood, r.PropertyType, r.MarketValue.StringFixed(2), r.Address}
}

// NeverRentedStats is a row of the never-rented report.
type NeverRentedStats struct {
	Neighborhood     string  `json:"neighborhood"`
	NeverRentedCount int64   `json:"never_rented_count"`
	TotalProperties  int64   `json:"total_properties"`
	NeverRentedPct   float64 `json:"never_rented_pct"`
}

func (NeverRentedStats) CSVHeader() []string {
	return []string{"neighborhood", "never_rented_count", "total_properties", "never_rented_pct"}
}

func (r NeverRentedStats) CSVRecord() []string {
	return []string{
		r.Neighborhood,
		strconv.FormatInt(r.NeverRentedCount, 10),
		strconv.FormatInt(r.TotalProperties, 10),
		formatFloat(r.NeverRentedPct),
	}
}

// RentalIncome is a row of the active rental income report.
type RentalIncome struct {
	Neighborhood      string          `json:"neighborhood"`
	TotalRentalIncome decimal.Decimal `json:"total_rental_income"`
	ActiveRentals     int64           `json:"active_rentals"`
}

func (RentalIncome) CSVHeader() []string {
	return []string{"neighborhood", "total_rental_income", "active_rentals"}
}

func (r RentalIncome) CSVRecord() []string {
	return []string{r.Neighborhood, r.TotalRentalIncome.StringFixed(2), strconv.FormatInt(r.ActiveRentals, 10)}
}

// NeighborhoodProperty is a property listed by the neighborhood lookup.
type NeighborhoodProperty struct {
	PropertyID    int64           `json:"property_id"`
	PropertyType  string          `json:"property_type"`
	MarketValue   decimal.Decimal `json:"market_value"`
	SquareFootage int             `json:"square_footage"`
	PricePerSqFt  *float64        `gorm:"column:price_per_sqft" json:"price_per_sqft"`
	Address       string          `gorm:"-" json:"address"`
	AddressParts  `gorm:"embedded"`
}

func (NeighborhoodProperty) CSVHeader() []string {
	return []string{"property_id", "property_type", "market_value", "square_footage", "price_per_sqft", "address"}
}

func (r NeighborhoodProperty) CSVRecord() []string {
	pps := ""
	if r.PricePerSqFt != nil {
		pps = formatFloat(*r.PricePerSqFt)
	}
	return []string{
		strconv.FormatInt(r.PropertyID, 10),
		r.PropertyType,
		r.MarketValue.StringFixed(2),
		strconv.Itoa(r.SquareFootage),
		pps,
		r.Address,
	}
}

// PriceExtreme is a row of the per-type price extremes report. PriceRank
// uses competition ranking, so ties share a rank.
type PriceExtreme struct {
	PropertyType string          `json:"property_type"`
	Category     string          `json:"category"`
	PriceRank    int64           `json:"price_rank"`
	PropertyID   int64           `json:"property_id"`
	MarketValue  decimal.Decimal `json:"market_value"`
	Neighborhood string          `json:"neighborhood"`
	Address      string          `gorm:"-" json:"address"`
	AddressParts `gorm:"embedded"`
}

func (PriceExtreme) CSVHeader() []string {
	return []string{"property_type", "category", "price_rank", "property_id", "market_value", "neighborhood", "address"}
}

func (r PriceExtreme) CSVRecord() []string {
	return []string{
		r.PropertyType,
		r.Category,
		strconv.FormatInt(r.PriceRank, 10),
		strconv.FormatInt(r.PropertyID, 10),
		r.MarketValue.StringFixed(2),
		r.Neighborhood,
		r.Address,
	}
}

// NeighborhoodDiversity is a demographic survey summary.
type NeighborhoodDiversity struct {
	Neighborhood    string  `json:"neighborhood"`
	SurveyYear      int     `json:"survey_year"`
	TotalPopulation int64   `json:"total_population"`
	DiversityIndex  float64 `json:"diversity_index"`
}

func (NeighborhoodDiversity) CSVHeader() []string {
	return []string{"neighborhood", "survey_year", "total_population", "diversity_index"}
}

func (r NeighborhoodDiversity) CSVRecord() []string {
	return []string{
		r.Neighborhood,
		strconv.Itoa(r.SurveyYear),
		strconv.FormatInt(r.TotalPopulation, 10),
		formatFloat(r.DiversityIndex),
	}
}

// Dashboard bundles the neighborhood-wide reports computed together.
type Dashboard struct {
	GeneratedAt       time.Time               `json:"generated_at"`
	AsOf              time.Time               `json:"as_of"`
	OwnershipTurnover []NeighborhoodTurnover  `json:"ownership_turnover"`
	NeverRented       []NeverRentedStats      `json:"never_rented"`
	RentalIncome      []RentalIncome          `json:"rental_income"`
	PriceExtremes     []PriceExtreme          `json:"price_extremes"`
	Diversity         []NeighborhoodDiversity `json:"diversity"`
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		name     string
		line2    string
		expected string
	}{
		{name: "without second line", line2: "", expected: "12 Elm St, Springfield, IL 62704"},
		{name: "blank second line", line2: "   ", expected: "12 Elm St, Springfield, IL 62704"},
		{name: "with second line", line2: "Apt 4", expected: "12 Elm St, Apt 4, Springfield, IL 62704"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatAddress("12 Elm St", tt.line2, "Springfield", "IL", "62704"))
		})
	}
}

func TestPricePerSqFt(t *testing.T) {
	assert.Nil(t, PricePerSqFt(decimal.NewFromInt(250000), 0))

	pps := PricePerSqFt(decimal.NewFromInt(250000), 1000)
	require.NotNil(t, pps)
	assert.Equal(t, 250.0, *pps)

	pps = PricePerSqFt(decimal.NewFromInt(100000), 3)
	require.NotNil(t, pps)
	assert.Equal(t, 33333.33, *pps)
}

func TestPropertyBeforeSave(t *testing.T) {
	p := &Property{MarketValue: decimal.NewFromInt(300000), SquareFootage: 1500}
	require.NoError(t, p.BeforeSave(nil))
	require.NotNil(t, p.PricePerSqFt)
	assert.Equal(t, 200.0, *p.PricePerSqFt)

	p.SquareFootage = 0
	require.NoError(t, p.BeforeSave(nil))
	assert.Nil(t, p.PricePerSqFt)
}

func TestOwnershipBeforeSave(t *testing.T) {
	o := &Ownership{StartYear: 1990}
	require.NoError(t, o.BeforeSave(nil))
	assert.Nil(t, o.DurationYears)

	end := 2004
	o.EndYear = &end
	require.NoError(t, o.BeforeSave(nil))
	require.NotNil(t, o.DurationYears)
	assert.Equal(t, 14, *o.DurationYears)
}

func TestRentalDetailIsActive(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	assert.True(t, (&RentalDetail{}).IsActive(now))
	assert.True(t, (&RentalDetail{EndDate: &tomorrow}).IsActive(now))
	assert.False(t, (&RentalDetail{EndDate: &yesterday}).IsActive(now))
	assert.False(t, (&RentalDetail{EndDate: &now}).IsActive(now))
}

func TestRentalDetailBeforeSaveNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	start := time.Date(2024, 1, 1, 1, 0, 0, 0, loc)
	end := time.Date(2024, 3, 1, 1, 0, 0, 0, loc)
	r := &RentalDetail{StartDate: start, EndDate: &end}

	require.NoError(t, r.BeforeSave(nil))
	assert.Equal(t, time.UTC, r.StartDate.Location())
	assert.Equal(t, time.UTC, r.EndDate.Location())
	assert.True(t, r.StartDate.Equal(start))
}

func TestDiversityIndex(t *testing.T) {
	tests := []struct {
		name        string
		populations []int
		expected    float64
	}{
		{name: "empty", populations: nil, expected: 0},
		{name: "zero population", populations: []int{0, 0}, expected: 0},
		{name: "single group", populations: []int{500}, expected: 0},
		{name: "two equal groups", populations: []int{50, 50}, expected: 0.5},
		{name: "four equal groups", populations: []int{25, 25, 25, 25}, expected: 0.75},
		{name: "uneven groups", populations: []int{60, 30, 10}, expected: 1 - (0.36 + 0.09 + 0.01)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, DiversityIndex(tt.populations), 1e-9)
		})
	}
}

func TestNewDemographicInfo(t *testing.T) {
	info := NewDemographicInfo(7, 2020, map[string]int{"b": 30, "a": 60, "c": 10})

	assert.Equal(t, int64(7), info.NeighborhoodID)
	assert.Equal(t, 2020, info.SurveyYear)
	assert.Equal(t, 100, info.TotalPopulation)
	assert.InDelta(t, 0.54, info.DiversityIndex, 1e-9)
	require.Len(t, info.Groups, 3)
	assert.Equal(t, "a", info.Groups[0].Category)
	assert.Equal(t, "c", info.Groups[2].Category)
}

func TestReportCSVRecords(t *testing.T) {
	pps := 250.0
	row := NeighborhoodProperty{
		PropertyID:    3,
		PropertyType:  "Condo",
		MarketValue:   decimal.NewFromInt(250000),
		SquareFootage: 1000,
		PricePerSqFt:  &pps,
		Address:       "1 Main St, Springfield, IL 62704",
	}
	assert.Equal(t, len(row.CSVHeader()), len(row.CSVRecord()))
	assert.Equal(t, []string{"3", "Condo", "250000.00", "1000", "250.00", "1 Main St, Springfield, IL 62704"}, row.CSVRecord())

	row.PricePerSqFt = nil
	assert.Equal(t, "", row.CSVRecord()[4])
}

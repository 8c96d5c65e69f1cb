package models

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
)

// DemographicInfo is one population survey of a neighborhood.
type DemographicInfo struct {
	ID              int64              `gorm:"primaryKey" json:"id"`
	NeighborhoodID  int64              `gorm:"not null;uniqueIndex:idx_demographic_survey" json:"neighborhood_id"`
	SurveyYear      int                `gorm:"not null;uniqueIndex:idx_demographic_survey" json:"survey_year"`
	TotalPopulation int                `gorm:"not null" json:"total_population"`
	DiversityIndex  float64            `gorm:"not null" json:"diversity_index"`
	Groups          []DemographicGroup `gorm:"constraint:OnDelete:CASCADE" json:"groups"`
	CreatedAt       time.Time          `json:"created_at"`

	Neighborhood *Neighborhood `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (DemographicInfo) TableName() string {
	return "demographic_info"
}

type DemographicGroup struct {
	ID                int64  `gorm:"primaryKey" json:"-"`
	DemographicInfoID int64  `gorm:"not null;index" json:"-"`
	Category          string `gorm:"size:100;not null" json:"category"`
	Population        int    `gorm:"not null;check:chk_demographic_groups_population,population >= 0" json:"population"`
}

// DiversityIndex returns Simpson's diversity index, 1 - sum(share^2), for a
// population breakdown. An empty population has index 0.
func DiversityIndex(populations []int) float64 {
	counts := make([]float64, len(populations))
	for i, p := range populations {
		counts[i] = float64(p)
	}
	total := floats.Sum(counts)
	if total <= 0 {
		return 0
	}
	floats.Scale(1/total, counts)
	return 1 - floats.Dot(counts, counts)
}

// NewDemographicInfo builds a survey row with its derived totals. Groups are
// ordered by category.
func NewDemographicInfo(neighborhoodID int64, surveyYear int, populations map[string]int) *DemographicInfo {
	categories := make([]string, 0, len(populations))
	for c := range populations {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	info := &DemographicInfo{
		NeighborhoodID: neighborhoodID,
		SurveyYear:     surveyYear,
		Groups:         make([]DemographicGroup, 0, len(categories)),
	}
	counts := make([]int, 0, len(categories))
	for _, c := range categories {
		info.Groups = append(info.Groups, DemographicGroup{Category: c, Population: populations[c]})
		info.TotalPopulation += populations[c]
		counts = append(counts, populations[c])
	}
	info.DiversityIndex = DiversityIndex(counts)
	return info
}

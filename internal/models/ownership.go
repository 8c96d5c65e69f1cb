package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Owner is a person that held a property at some point. FullName is a
// display key and is not unique.
type Owner struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	FullName  string    `gorm:"size:200;not null;index" json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

type Renter struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	FullName  string    `gorm:"size:200;not null;index" json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Ownership links a property to an owner for a span of years. A nil EndYear
// marks the current owner.
type Ownership struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	PropertyID    int64     `gorm:"not null;index" json:"property_id"`
	OwnerID       int64     `gorm:"not null;index" json:"owner_id"`
	StartYear     int       `gorm:"not null" json:"start_year"`
	EndYear       *int      `gorm:"check:chk_ownerships_years,end_year IS NULL OR end_year >= start_year" json:"end_year"`
	DurationYears *int      `json:"duration_years"`
	CreatedAt     time.Time `json:"created_at"`

	Property *Property `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Owner    *Owner    `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

func (o *Ownership) BeforeSave(tx *gorm.DB) error {
	o.DurationYears = nil
	if o.EndYear != nil {
		d := *o.EndYear - o.StartYear
		o.DurationYears = &d
	}
	return nil
}

type RentalDetail struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	PropertyID  int64           `gorm:"not null;index" json:"property_id"`
	RenterID    int64           `gorm:"not null;index" json:"renter_id"`
	StartDate   time.Time       `gorm:"not null" json:"start_date"`
	EndDate     *time.Time      `gorm:"index" json:"end_date"`
	RentalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_rental_details_price,rental_price > 0" json:"rental_price"`
	CreatedAt   time.Time       `json:"created_at"`

	Property *Property `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Renter   *Renter   `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

// BeforeSave stores dates in UTC so that they compare correctly as text in
// SQLite.
func (r *RentalDetail) BeforeSave(tx *gorm.DB) error {
	r.StartDate = r.StartDate.UTC()
	if r.EndDate != nil {
		end := r.EndDate.UTC()
		r.EndDate = &end
	}
	return nil
}

// IsActive reports whether the rental is still running at the given time.
func (r *RentalDetail) IsActive(at time.Time) bool {
	return r.EndDate == nil || r.EndDate.After(at)
}

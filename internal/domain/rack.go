package domain

import "time"

type RackStatus string

const (
	RackAvailable    RackStatus = "available"
	RackNotAvailable RackStatus = "not_available"
)

// Rack is a bookable lab resource. Bookings on a rack pay HourlyRate
// tokens per started hour.
type Rack struct {
	ID         int64      `json:"id" gorm:"primaryKey"`
	Name       string     `json:"name" gorm:"not null"`
	Status     RackStatus `json:"status" gorm:"type:varchar(16);not null;default:'available'"`
	HourlyRate int64      `json:"hourly_rate" gorm:"not null"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (r *Rack) IsAvailable() bool {
	return r.Status == RackAvailable
}

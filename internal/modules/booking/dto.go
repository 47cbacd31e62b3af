package booking

import "time"

type CreateBookingRequest struct {
	RackID             int64     `json:"rack_id" binding:"required"`
	StartTime          time.Time `json:"start_time" binding:"required"`
	EndTime            time.Time `json:"end_time" binding:"required"`
	SelectedACIVersion string    `json:"selected_aci_version"`
	PreConfigs         []string  `json:"pre_configs"`
}

// AdminEditBookingRequest carries the optional fields an admin may
// change. Nil means keep the current value.
type AdminEditBookingRequest struct {
	NewUserID *int64     `json:"new_user_id"`
	NewRackID *int64     `json:"new_rack_id"`
	NewStart  *time.Time `json:"new_start"`
	NewEnd    *time.Time `json:"new_end"`
	NewCost   *int64     `json:"new_cost"`
}

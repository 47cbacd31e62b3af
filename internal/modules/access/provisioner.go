package access

import (
	"context"
	"fmt"
	"log"
)

// Provisioner is the remote-desktop backend: given a rack and booking it
// returns a connectable endpoint URL, and can be told to tear it down.
// Calls may be slow and may fail.
type Provisioner interface {
	Provision(ctx context.Context, rackID, bookingID int64) (string, error)
	Deprovision(ctx context.Context, bookingID int64) error
}

// DevProvisioner fabricates endpoint URLs without touching any backend.
// Used by local development and the seed fixtures.
type DevProvisioner struct {
	BaseURL string
}

func NewDevProvisioner(baseURL string) *DevProvisioner {
	if baseURL == "" {
		baseURL = "vnc://lab.local"
	}
	return &DevProvisioner{BaseURL: baseURL}
}

func (p *DevProvisioner) Provision(_ context.Context, rackID, bookingID int64) (string, error) {
	url := fmt.Sprintf("%s/racks/%d/sessions/%d", p.BaseURL, rackID, bookingID)
	log.Printf("dev_provisioner provision rack_id=%d booking_id=%d url=%s", rackID, bookingID, url)
	return url, nil
}

func (p *DevProvisioner) Deprovision(_ context.Context, bookingID int64) error {
	log.Printf("dev_provisioner deprovision booking_id=%d", bookingID)
	return nil
}

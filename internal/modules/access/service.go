package access

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"racklab/internal/domain"
	"racklab/internal/pkg/clock"
)

type BookingGetter interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
}

type SessionRepository interface {
	GetByBookingID(ctx context.Context, bookingID int64) (*domain.AccessSession, error)
	Create(ctx context.Context, s *domain.AccessSession) error
	Save(ctx context.Context, s *domain.AccessSession) error
}

// Service governs when a booking's remote-desktop endpoint may exist.
// The session is a projection of the booking's time window: every call
// re-validates against server time, never against anything the client
// claims.
type Service struct {
	bookings BookingGetter
	sessions SessionRepository
	prov     Provisioner
	clock    clock.Clock

	mu sync.Mutex // serializes provision/teardown per process
}

func NewService(bookings BookingGetter, sessions SessionRepository, prov Provisioner, clk clock.Clock) *Service {
	return &Service{
		bookings: bookings,
		sessions: sessions,
		prov:     prov,
		clock:    clk,
	}
}

// StartAccess provisions the booking's endpoint. Only the owner may
// start, only while the booking is confirmed and now is inside
// [startTime, endTime). Re-requesting while already active returns the
// existing endpoint instead of provisioning twice.
func (s *Service) StartAccess(ctx context.Context, bookingID, actingUserID int64) (*domain.AccessSession, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if b.UserID != actingUserID {
		return nil, ErrForbidden
	}
	if b.Status != domain.BookingConfirmed {
		return nil, ErrNotConfirmed
	}

	now := s.clock.Now()
	if now.Before(b.StartTime) {
		return nil, ErrNotYetStarted
	}
	if !now.Before(b.EndTime) {
		return nil, ErrExpired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.GetByBookingID(ctx, bookingID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if sess != nil && sess.IsActive {
		return sess, nil
	}

	url, err := s.prov.Provision(ctx, b.RackID, b.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}

	if sess == nil {
		sess = &domain.AccessSession{BookingID: bookingID}
	}
	sess.IsActive = true
	sess.EndpointURL = url
	sess.ActivatedAt = &now

	if sess.ID == uuid.Nil {
		err = s.sessions.Create(ctx, sess)
	} else {
		err = s.sessions.Save(ctx, sess)
	}
	if err != nil {
		// Keep provisioning and persistence consistent: tear the
		// endpoint back down if we failed to record it.
		if depErr := s.prov.Deprovision(ctx, bookingID); depErr != nil {
			log.Printf("start_access booking_id=%d orphan_deprovision_failed error=%q", bookingID, depErr)
		}
		return nil, err
	}
	return sess, nil
}

// GetSession returns the booking's session, lazily deactivating it when
// the window has elapsed so a stale row never reports a live endpoint.
func (s *Service) GetSession(ctx context.Context, bookingID int64) (*domain.AccessSession, error) {
	sess, err := s.sessions.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if sess.IsActive {
		b, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if b.Status != domain.BookingConfirmed || !b.InWindow(s.clock.Now()) {
			if err := s.StopAccess(ctx, bookingID); err != nil {
				return nil, err
			}
			return s.sessions.GetByBookingID(ctx, bookingID)
		}
	}
	return sess, nil
}

// StopAccess deactivates the session and tears down the provisioned
// endpoint. Idempotent: stopping a missing or inactive session is a
// no-op.
func (s *Service) StopAccess(ctx context.Context, bookingID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if !sess.IsActive {
		return nil
	}

	sess.IsActive = false
	sess.EndpointURL = ""
	if err := s.sessions.Save(ctx, sess); err != nil {
		return err
	}

	if err := s.prov.Deprovision(ctx, bookingID); err != nil {
		log.Printf("stop_access booking_id=%d deprovision_failed error=%q", bookingID, err)
	}
	return nil
}

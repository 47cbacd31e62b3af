package domain

import "time"

type EntryKind string

const (
	EntryPurchase    EntryKind = "purchase"
	EntryDebit       EntryKind = "debit"
	EntryRefund      EntryKind = "refund"
	EntryTransferOut EntryKind = "transfer_out"
	EntryTransferIn  EntryKind = "transfer_in"
)

// LedgerEntry is an append-only record of a single balance change. The
// running sum of a user's deltas must always equal that user's
// TokenBalance. The auto-incremented id doubles as the insertion order,
// so "newest first" stays deterministic even when timestamps collide.
type LedgerEntry struct {
	ID               int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID           int64     `json:"user_id" gorm:"not null;index"`
	Delta            int64     `json:"delta" gorm:"not null"`
	Kind             EntryKind `json:"kind" gorm:"type:varchar(16);not null;index"`
	RelatedBookingID *int64    `json:"related_booking_id,omitempty" gorm:"index"`
	ResultingBalance int64     `json:"resulting_balance" gorm:"not null"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

package parts

import (
	"errors"
	"time"
)

// Part is one entry in the master price list. AuthorizedPrice is treated as
// ground truth when comparing invoice prices.
type Part struct {
	PartNumber      string    `json:"part_number"`
	AuthorizedPrice float64   `json:"authorized_price"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ReviewItem is a deferred unknown-part context persisted for later batch
// review.
type ReviewItem struct {
	PartNumber      string    `json:"part_number"`
	DiscoveredPrice float64   `json:"discovered_price"`
	Description     string    `json:"description,omitempty"`
	InvoiceNumber   string    `json:"invoice_number"`
	InvoiceDate     time.Time `json:"invoice_date"`
	Occurrences     int       `json:"occurrences"`
	SessionID       string    `json:"session_id"`
	DeferredAt      time.Time `json:"deferred_at"`
}

// PriceStats summarizes authorized prices across active parts.
type PriceStats struct {
	Count   int     `json:"count"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

// ErrPartNotFound is returned by FindPart for unknown part numbers.
var ErrPartNotFound = errors.New("part not found")

// ErrDuplicatePart is returned by InsertPart when the part number already
// exists.
var ErrDuplicatePart = errors.New("part already exists")

// Store defines the parts price list operations the validation core needs.
type Store interface {
	// FindPart retrieves a part by number, ErrPartNotFound when absent.
	FindPart(partNumber string) (*Part, error)

	// InsertPart adds a new part, ErrDuplicatePart when the number is taken.
	InsertPart(part *Part) error

	// UpdatePart overwrites an existing part.
	UpdatePart(part *Part) error

	// ListParts returns all parts.
	ListParts() ([]*Part, error)

	// Stats aggregates authorized prices over active parts.
	Stats() (*PriceStats, error)

	// SaveReviewItem persists a deferred unknown-part context.
	SaveReviewItem(item *ReviewItem) error

	// ListReviewItems returns the persisted review queue.
	ListReviewItems() ([]*ReviewItem, error)

	// Close closes the store.
	Close() error
}

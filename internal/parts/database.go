package parts

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	partsBucketName  = "parts"
	reviewBucketName = "review_queue"
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the price list database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(partsBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(reviewBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// FindPart retrieves a part by number.
func (s *BoltStore) FindPart(partNumber string) (*Part, error) {
	var part *Part
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(partsBucketName))
		data := bucket.Get([]byte(partNumber))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrPartNotFound, partNumber)
		}
		return json.Unmarshal(data, &part)
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

// InsertPart adds a new part, failing on duplicate part numbers.
func (s *BoltStore) InsertPart(part *Part) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(partsBucketName))
		if existing := bucket.Get([]byte(part.PartNumber)); existing != nil {
			return fmt.Errorf("%w: %s", ErrDuplicatePart, part.PartNumber)
		}
		data, err := json.Marshal(part)
		if err != nil {
			return fmt.Errorf("marshaling part: %w", err)
		}
		return bucket.Put([]byte(part.PartNumber), data)
	})
}

// UpdatePart overwrites an existing part.
func (s *BoltStore) UpdatePart(part *Part) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(partsBucketName))
		if existing := bucket.Get([]byte(part.PartNumber)); existing == nil {
			return fmt.Errorf("%w: %s", ErrPartNotFound, part.PartNumber)
		}
		data, err := json.Marshal(part)
		if err != nil {
			return fmt.Errorf("marshaling part: %w", err)
		}
		return bucket.Put([]byte(part.PartNumber), data)
	})
}

// ListParts returns all parts.
func (s *BoltStore) ListParts() ([]*Part, error) {
	parts := make([]*Part, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(partsBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var part Part
			if err := json.Unmarshal(v, &part); err != nil {
				return fmt.Errorf("unmarshaling part: %w", err)
			}
			parts = append(parts, &part)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return parts, nil
}

// Stats aggregates authorized prices over active parts.
func (s *BoltStore) Stats() (*PriceStats, error) {
	stats := &PriceStats{}
	var sum float64
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(partsBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var part Part
			if err := json.Unmarshal(v, &part); err != nil {
				return fmt.Errorf("unmarshaling part: %w", err)
			}
			if !part.Active {
				return nil
			}
			if stats.Count == 0 || part.AuthorizedPrice < stats.Min {
				stats.Min = part.AuthorizedPrice
			}
			if part.AuthorizedPrice > stats.Max {
				stats.Max = part.AuthorizedPrice
			}
			sum += part.AuthorizedPrice
			stats.Count++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if stats.Count > 0 {
		stats.Average = sum / float64(stats.Count)
	}
	return stats, nil
}

// SaveReviewItem persists a deferred unknown-part context, keyed by part
// number so repeated deferrals overwrite rather than accumulate.
func (s *BoltStore) SaveReviewItem(item *ReviewItem) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(reviewBucketName))
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshaling review item: %w", err)
		}
		return bucket.Put([]byte(item.PartNumber), data)
	})
}

// ListReviewItems returns the persisted review queue.
func (s *BoltStore) ListReviewItems() ([]*ReviewItem, error) {
	items := make([]*ReviewItem, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(reviewBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var item ReviewItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshaling review item: %w", err)
			}
			items = append(items, &item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

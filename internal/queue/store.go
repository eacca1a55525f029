// Package queue keeps the Formhub submissions waiting to be delivered to
// DHIS2 and drains them.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"f2dhis2/internal/database"
	"f2dhis2/internal/models"
)

// ErrClaimLost is returned by Complete and Release when the caller no longer
// holds the claim, e.g. because its lease expired and another drain took it.
var ErrClaimLost = errors.New("queue item claim lost")

// Store is the gorm-backed data queue. Items are never deleted.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a queue store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

// Enqueue records a submission for delivery. A known submission is re-armed
// (processed=false) instead of duplicated.
func (s *Store) Enqueue(ctx context.Context, serviceID uuid.UUID, dataID string) (*models.DataQueue, error) {
	db := s.db.WithContext(ctx)

	item, err := s.find(db, serviceID, dataID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		item = &models.DataQueue{ServiceID: serviceID, DataID: dataID}
		err = db.Omit("Service").Create(item).Error
		if database.IsUniqueViolation(err) {
			item, err = s.find(db, serviceID, dataID)
		} else if err == nil {
			return item, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s for service %s: %w", dataID, serviceID, err)
	}

	if item.Processed {
		if err := db.Model(item).Update("processed", false).Error; err != nil {
			return nil, fmt.Errorf("failed to re-arm queue item %s: %w", item.ID, err)
		}
		item.Processed = false
	}
	return item, nil
}

func (s *Store) find(db *gorm.DB, serviceID uuid.UUID, dataID string) (*models.DataQueue, error) {
	var item models.DataQueue
	if err := db.Where("service_id = ? AND data_id = ?", serviceID, dataID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Get returns one queue item.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.DataQueue, error) {
	var item models.DataQueue
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListUnprocessed returns the pending items oldest first, services loaded.
func (s *Store) ListUnprocessed(ctx context.Context) ([]models.DataQueue, error) {
	processed := false
	return s.List(ctx, &processed)
}

// List returns queue items oldest first, optionally filtered by state.
func (s *Store) List(ctx context.Context, processed *bool) ([]models.DataQueue, error) {
	query := s.db.WithContext(ctx).Preload("Service").Order("created_at, id")
	if processed != nil {
		query = query.Where("processed = ?", *processed)
	}
	var items []models.DataQueue
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list data queue: %w", err)
	}
	return items, nil
}

// Claim leases an unprocessed item for ttl. It reports false when the item
// is processed or another live claim holds it. Expired claims are taken over.
func (s *Store) Claim(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, bool, error) {
	now := s.clock()
	token := uuid.NewString()

	result := s.db.WithContext(ctx).Model(&models.DataQueue{}).
		Where("id = ? AND processed = ? AND (claim_token IS NULL OR claimed_at < ?)", id, false, now.Add(-ttl)).
		Updates(map[string]interface{}{
			"claim_token": token,
			"claimed_at":  now,
		})
	if result.Error != nil {
		return "", false, fmt.Errorf("failed to claim queue item %s: %w", id, result.Error)
	}
	if result.RowsAffected != 1 {
		return "", false, nil
	}
	return token, true, nil
}

// Complete marks a claimed item processed.
func (s *Store) Complete(ctx context.Context, id uuid.UUID, token string) error {
	now := s.clock()
	return s.settle(ctx, id, token, map[string]interface{}{
		"processed":    true,
		"processed_on": now,
		"claim_token":  nil,
		"claimed_at":   nil,
		"attempts":     gorm.Expr("attempts + ?", 1),
		"last_error":   "",
	})
}

// Release gives a claimed item back for a later drain, recording why the
// attempt failed.
func (s *Store) Release(ctx context.Context, id uuid.UUID, token string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.settle(ctx, id, token, map[string]interface{}{
		"claim_token": nil,
		"claimed_at":  nil,
		"attempts":    gorm.Expr("attempts + ?", 1),
		"last_error":  msg,
	})
}

func (s *Store) settle(ctx context.Context, id uuid.UUID, token string, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.DataQueue{}).
		Where("id = ? AND claim_token = ?", id, token).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update queue item %s: %w", id, result.Error)
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("queue item %s: %w", id, ErrClaimLost)
	}
	return nil
}

// Package mapping stores which form field feeds which DHIS2 data element
// inside a DataValueSet.
package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"f2dhis2/internal/database"
	"f2dhis2/internal/models"
)

var (
	// ErrMappingConflict is returned when the data element is already mapped
	// within the DataValueSet.
	ErrMappingConflict = errors.New("data element already mapped for this data value set")
	// ErrElementOutsideDataSet is returned when the data element does not
	// belong to the DataValueSet's data set.
	ErrElementOutsideDataSet = errors.New("data element does not belong to the data set")
	// ErrNotFound is returned for unknown mappings, data value sets or data elements.
	ErrNotFound = errors.New("not found")
)

// Entry is a resolved mapping: DHIS2 data element uid and the record key
// holding its value.
type Entry struct {
	ElementID string `json:"element_id"`
	FormField string `json:"form_field"`
}

// Store persists FormDataElement rows.
type Store struct {
	db *gorm.DB
}

// NewStore creates a mapping store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindMapping returns the mappings of a DataValueSet in creation order.
func (s *Store) FindMapping(ctx context.Context, dataValueSetID uuid.UUID) ([]Entry, error) {
	var entries []Entry
	err := s.db.WithContext(ctx).
		Table("form_data_elements AS m").
		Select("e.element_id AS element_id, m.form_field AS form_field").
		Joins("JOIN data_elements AS e ON e.id = m.data_element_id").
		Where("m.data_value_set_id = ?", dataValueSetID).
		Order("m.created_at, m.id").
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings for data value set %s: %w", dataValueSetID, err)
	}
	return entries, nil
}

// ListMappings returns the stored mappings of a DataValueSet with their data
// elements, in creation order.
func (s *Store) ListMappings(ctx context.Context, dataValueSetID uuid.UUID) ([]models.FormDataElement, error) {
	var mappings []models.FormDataElement
	err := s.db.WithContext(ctx).
		Preload("DataElement").
		Where("data_value_set_id = ?", dataValueSetID).
		Order("created_at, id").
		Find(&mappings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	return mappings, nil
}

// CreateMapping maps formField onto a data element of the DataValueSet's data
// set. A second mapping for the same data element fails with
// ErrMappingConflict and leaves the first untouched.
func (s *Store) CreateMapping(ctx context.Context, dataValueSetID, dataElementID uuid.UUID, formField string) (*models.FormDataElement, error) {
	db := s.db.WithContext(ctx)

	var dvs models.DataValueSet
	if err := db.First(&dvs, "id = ?", dataValueSetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("data value set %s: %w", dataValueSetID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load data value set: %w", err)
	}

	var element models.DataElement
	if err := db.First(&element, "id = ?", dataElementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("data element %s: %w", dataElementID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load data element: %w", err)
	}
	if element.DataSetID != dvs.DataSetID {
		return nil, ErrElementOutsideDataSet
	}

	var existing int64
	if err := db.Model(&models.FormDataElement{}).
		Where("data_value_set_id = ? AND data_element_id = ?", dataValueSetID, dataElementID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing mapping: %w", err)
	}
	if existing > 0 {
		return nil, ErrMappingConflict
	}

	m := models.FormDataElement{
		DataValueSetID: dataValueSetID,
		DataElementID:  dataElementID,
		FormField:      formField,
	}
	if err := db.Create(&m).Error; err != nil {
		// Lost a race with a concurrent create.
		if database.IsUniqueViolation(err) {
			return nil, ErrMappingConflict
		}
		return nil, fmt.Errorf("failed to create mapping: %w", err)
	}
	m.DataElement = &element
	return &m, nil
}

// DeleteMapping removes one mapping of a DataValueSet.
func (s *Store) DeleteMapping(ctx context.Context, dataValueSetID, mappingID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND data_value_set_id = ?", mappingID, dataValueSetID).
		Delete(&models.FormDataElement{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete mapping: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("mapping %s: %w", mappingID, ErrNotFound)
	}
	return nil
}

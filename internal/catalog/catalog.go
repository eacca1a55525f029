// Package catalog stores the registered Formhub services, the imported DHIS2
// data sets and the bindings between them.
package catalog

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
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Store is the gorm-backed catalog.
type Store struct {
	db *gorm.DB
}

// NewStore creates a catalog store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func notFound(err error, what string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %v: %w", what, id, err)
}

// CreateService registers a form. The (id_string, url) pair must be new.
func (s *Store) CreateService(ctx context.Context, service *models.Service) error {
	if err := s.db.WithContext(ctx).Create(service).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("service %s at %s: %w", service.IDString, service.URL, ErrDuplicate)
		}
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

func (s *Store) GetService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var service models.Service
	if err := s.db.WithContext(ctx).First(&service, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "service", id)
	}
	return &service, nil
}

// FindServiceByIDString returns the oldest service registered under idString.
func (s *Store) FindServiceByIDString(ctx context.Context, idString string) (*models.Service, error) {
	var service models.Service
	err := s.db.WithContext(ctx).
		Where("id_string = ?", idString).
		Order("created_at, id").
		First(&service).Error
	if err != nil {
		return nil, notFound(err, "service", idString)
	}
	return &service, nil
}

func (s *Store) ListServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&services).Error; err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

// UpdateDescriptor replaces the stored form descriptor of a service.
func (s *Store) UpdateDescriptor(ctx context.Context, id uuid.UUID, name, descriptor string) (*models.Service, error) {
	result := s.db.WithContext(ctx).Model(&models.Service{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "descriptor": descriptor})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update service descriptor: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("service %s: %w", id, ErrNotFound)
	}
	return s.GetService(ctx, id)
}

// UpsertDataSet creates or refreshes a data set, keyed by its DHIS2 uid, and
// its data elements. Elements no longer listed are kept so existing mappings
// stay valid.
func (s *Store) UpsertDataSet(ctx context.Context, in models.DataSet) (*models.DataSet, error) {
	var id uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ds models.DataSet
		err := tx.Where("data_set_id = ?", in.DataSetID).First(&ds).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			ds = models.DataSet{DataSetID: in.DataSetID, Name: in.Name, Frequency: in.Frequency, URL: in.URL}
			if err := tx.Omit("Elements").Create(&ds).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&ds).Updates(map[string]interface{}{
				"name": in.Name, "frequency": in.Frequency, "url": in.URL,
			}).Error; err != nil {
				return err
			}
		}
		id = ds.ID

		for _, el := range in.Elements {
			var existing models.DataElement
			err := tx.Where("data_set_id = ? AND element_id = ?", ds.ID, el.ElementID).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				created := models.DataElement{DataSetID: ds.ID, ElementID: el.ElementID, Name: el.Name}
				if err := tx.Create(&created).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			case existing.Name != el.Name:
				if err := tx.Model(&existing).Update("name", el.Name).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("data set %s: %w", in.DataSetID, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to save data set %s: %w", in.DataSetID, err)
	}
	return s.GetDataSet(ctx, id)
}

// GetDataSet returns a data set with its elements.
func (s *Store) GetDataSet(ctx context.Context, id uuid.UUID) (*models.DataSet, error) {
	var ds models.DataSet
	err := s.db.WithContext(ctx).
		Preload("Elements", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, element_id") }).
		First(&ds, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "data set", id)
	}
	return &ds, nil
}

func (s *Store) ListDataSets(ctx context.Context) ([]models.DataSet, error) {
	var sets []models.DataSet
	err := s.db.WithContext(ctx).
		Preload("Elements", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, element_id") }).
		Order("created_at, id").
		Find(&sets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list data sets: %w", err)
	}
	return sets, nil
}

// CreateDataValueSet binds a service to a data set. One binding per pair.
func (s *Store) CreateDataValueSet(ctx context.Context, serviceID, dataSetID uuid.UUID, orgUnit string) (*models.DataValueSet, error) {
	if _, err := s.GetService(ctx, serviceID); err != nil {
		return nil, err
	}
	if _, err := s.GetDataSet(ctx, dataSetID); err != nil {
		return nil, err
	}

	dvs := models.DataValueSet{ServiceID: serviceID, DataSetID: dataSetID, OrgUnit: orgUnit}
	if err := s.db.WithContext(ctx).Omit("Service", "DataSet").Create(&dvs).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("data value set for service %s and data set %s: %w", serviceID, dataSetID, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create data value set: %w", err)
	}
	return s.GetDataValueSet(ctx, dvs.ID)
}

// GetDataValueSet returns a binding with its service and data set.
func (s *Store) GetDataValueSet(ctx context.Context, id uuid.UUID) (*models.DataValueSet, error) {
	var dvs models.DataValueSet
	err := s.db.WithContext(ctx).
		Preload("Service").
		Preload("DataSet").
		First(&dvs, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "data value set", id)
	}
	return &dvs, nil
}

func (s *Store) ListDataValueSets(ctx context.Context) ([]models.DataValueSet, error) {
	var sets []models.DataValueSet
	err := s.db.WithContext(ctx).
		Preload("Service").
		Preload("DataSet").
		Order("created_at, id").
		Find(&sets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list data value sets: %w", err)
	}
	return sets, nil
}

// DataValueSetsForService returns every binding of a service, data sets loaded.
func (s *Store) DataValueSetsForService(ctx context.Context, serviceID uuid.UUID) ([]models.DataValueSet, error) {
	var sets []models.DataValueSet
	err := s.db.WithContext(ctx).
		Preload("DataSet").
		Where("service_id = ?", serviceID).
		Order("created_at, id").
		Find(&sets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load data value sets for service %s: %w", serviceID, err)
	}
	return sets, nil
}

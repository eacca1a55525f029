package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Frequency is the reporting period type of a DHIS2 data set.
type Frequency string

const (
	FrequencyYearly  Frequency = "Yearly"
	FrequencyMonthly Frequency = "Monthly"
	FrequencyWeekly  Frequency = "Weekly"
	FrequencyDaily   Frequency = "Daily"
)

// ValidFrequencies defines the reporting frequencies the period resolver understands.
// Anything else is reported daily.
var ValidFrequencies = map[Frequency]bool{
	FrequencyYearly:  true,
	FrequencyMonthly: true,
	FrequencyWeekly:  true,
	FrequencyDaily:   true,
}

// Service is a registered Formhub form (one source endpoint).
// @Description Service is a registered Formhub form that submissions are pulled from.
type Service struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	IDString   string    `json:"id_string" gorm:"type:varchar(64);not null;uniqueIndex:idx_service_id_string_url"`
	Name       string    `json:"name" gorm:"type:varchar(255);not null"`
	URL        string    `json:"url" gorm:"type:varchar(512);not null;uniqueIndex:idx_service_id_string_url"`
	Descriptor string    `json:"-" gorm:"type:text"` // raw form.json as returned by Formhub
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName keeps the historical table name.
func (Service) TableName() string {
	return "formhub_services"
}

// DataSet is a DHIS2 reporting container.
// @Description DataSet is a DHIS2 data set with its reporting frequency.
type DataSet struct {
	ID        uuid.UUID     `json:"id" gorm:"type:uuid;primary_key"`
	DataSetID string        `json:"data_set_id" gorm:"type:varchar(32);not null;uniqueIndex"` // DHIS2 uid
	Name      string        `json:"name" gorm:"type:varchar(255);not null"`
	Frequency Frequency     `json:"frequency" gorm:"type:varchar(32);not null;default:'Daily'"`
	URL       string        `json:"url,omitempty" gorm:"type:varchar(512)"`
	CreatedAt time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
	Elements  []DataElement `json:"elements,omitempty" gorm:"foreignKey:DataSetID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// DataElement is one reportable field of a DataSet.
type DataElement struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	DataSetID uuid.UUID `json:"data_set_id" gorm:"type:uuid;not null;uniqueIndex:idx_data_set_element"`
	ElementID string    `json:"element_id" gorm:"type:varchar(32);not null;uniqueIndex:idx_data_set_element"` // DHIS2 uid
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// DataValueSet binds a Service to a DataSet and an organisation unit.
// @Description DataValueSet defines what is reported where.
type DataValueSet struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ServiceID uuid.UUID `json:"service_id" gorm:"type:uuid;not null;uniqueIndex:idx_service_data_set"`
	DataSetID uuid.UUID `json:"data_set_id" gorm:"type:uuid;not null;uniqueIndex:idx_service_data_set"`
	OrgUnit   string    `json:"org_unit" gorm:"type:varchar(32)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
	Service   *Service  `json:"service,omitempty" gorm:"foreignKey:ServiceID;references:ID"`
	DataSet   *DataSet  `json:"data_set,omitempty" gorm:"foreignKey:DataSetID;references:ID"`
}

// FormDataElement maps one form field onto one data element within a DataValueSet.
// @Description FormDataElement is a field mapping from a Formhub field to a DHIS2 data element.
type FormDataElement struct {
	ID             uuid.UUID    `json:"id" gorm:"type:uuid;primary_key"`
	DataValueSetID uuid.UUID    `json:"data_value_set_id" gorm:"type:uuid;not null;uniqueIndex:idx_value_set_element"`
	DataElementID  uuid.UUID    `json:"data_element_id" gorm:"type:uuid;not null;uniqueIndex:idx_value_set_element"`
	FormField      string       `json:"form_field" gorm:"type:varchar(255);not null"`
	CreatedAt      time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
	DataElement    *DataElement `json:"data_element,omitempty" gorm:"foreignKey:DataElementID;references:ID"`
}

// DataQueue is a pending synchronisation of one Formhub submission.
// Rows are never deleted.
// @Description DataQueue is a unit of synchronisation work keyed by service and submission uuid.
type DataQueue struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	ServiceID   uuid.UUID  `json:"service_id" gorm:"type:uuid;not null;uniqueIndex:idx_queue_service_data"`
	DataID      string     `json:"data_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_queue_service_data"`
	Processed   bool       `json:"processed" gorm:"not null;default:false;index"`
	ProcessedOn *time.Time `json:"processed_on,omitempty"`
	ClaimToken  *string    `json:"-" gorm:"type:varchar(36)"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	Attempts    int        `json:"attempts" gorm:"not null;default:0"`
	LastError   string     `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	Service     *Service   `json:"service,omitempty" gorm:"foreignKey:ServiceID;references:ID"`
}

// TableName keeps the historical table name.
func (DataQueue) TableName() string {
	return "data_queue"
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Service{},
		&DataSet{},
		&DataElement{},
		&DataValueSet{},
		&FormDataElement{},
		&DataQueue{},
	}
}

// ImportServiceRequest defines the request payload for importing a Formhub form.
type ImportServiceRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// ImportDataSetRequest defines the request payload for importing a DHIS2 data set.
type ImportDataSetRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// CreateDataValueSetRequest defines the request payload for binding a service to a data set.
type CreateDataValueSetRequest struct {
	ServiceID string `json:"service_id" binding:"required,uuid"`
	DataSetID string `json:"data_set_id" binding:"required,uuid"`
	OrgUnit   string `json:"org_unit" binding:"max=32"`
}

// CreateMappingRequest defines the request payload for mapping a form field to a data element.
type CreateMappingRequest struct {
	DataElementID string `json:"data_element_id" binding:"required,uuid"`
	FormField     string `json:"form_field" binding:"required,min=1,max=255"`
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (s *Service) BeforeCreate(*gorm.DB) error         { ensureID(&s.ID); return nil }
func (d *DataSet) BeforeCreate(*gorm.DB) error         { ensureID(&d.ID); return nil }
func (e *DataElement) BeforeCreate(*gorm.DB) error     { ensureID(&e.ID); return nil }
func (v *DataValueSet) BeforeCreate(*gorm.DB) error    { ensureID(&v.ID); return nil }
func (f *FormDataElement) BeforeCreate(*gorm.DB) error { ensureID(&f.ID); return nil }
func (q *DataQueue) BeforeCreate(*gorm.DB) error       { ensureID(&q.ID); return nil }

package dhis2

import (
	"errors"
	"fmt"

	"f2dhis2/internal/mapping"
	"f2dhis2/internal/models"
	"f2dhis2/internal/period"
)

// Record keys read by Render besides mapped fields.
const (
	LocationField = "location"
	PeriodField   = "period"
)

// ErrNoDataSet is returned when a DataValueSet is rendered without its
// DataSet loaded.
var ErrNoDataSet = errors.New("data value set has no data set loaded")

// Render builds the dataValueSet document for one record.
//
// The org unit comes from the record's location field, or from the binding
// when the record has none. Period, completeDate and values are only emitted
// for a non-empty record. Fields without a mapping are left out; mapped
// fields missing from the record are skipped. A missing or malformed period
// yields a *period.ParseError.
func Render(dvs *models.DataValueSet, mappings []mapping.Entry, record models.Record) ([]byte, error) {
	if dvs == nil || dvs.DataSet == nil {
		return nil, ErrNoDataSet
	}

	b := NewDataValueSetBuilder(dvs.DataSet.DataSetID)

	orgUnit, ok := record.String(LocationField)
	if !ok || orgUnit == "" {
		orgUnit = dvs.OrgUnit
	}
	b.OrgUnit(orgUnit)

	if !record.Empty() {
		raw, _ := record.String(PeriodField)
		p, err := period.Resolve(raw, dvs.DataSet.Frequency)
		if err != nil {
			return nil, err
		}
		b.Period(p).CompleteDate(raw)

		for _, m := range mappings {
			if value, ok := record.String(m.FormField); ok {
				b.Add(m.ElementID, value)
			}
		}
	}

	payload, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("render data value set %s: %w", dvs.ID, err)
	}
	return payload, nil
}

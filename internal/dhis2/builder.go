package dhis2

import (
	"encoding/xml"
	"fmt"
)

// Namespace is the DXF 2 namespace of dataValueSet documents.
const Namespace = "http://dhis2.org/schema/dxf/2.0"

// DataValueSetDocument is the XML form of a DHIS2 dataValueSet import.
type DataValueSetDocument struct {
	XMLName      xml.Name    `xml:"http://dhis2.org/schema/dxf/2.0 dataValueSet"`
	DataSet      string      `xml:"dataSet,attr"`
	CompleteDate string      `xml:"completeDate,attr,omitempty"`
	Period       string      `xml:"period,attr,omitempty"`
	OrgUnit      string      `xml:"orgUnit,attr,omitempty"`
	DataValues   []DataValue `xml:"dataValue"`
}

// DataValue is one reported value.
type DataValue struct {
	DataElement string `xml:"dataElement,attr"`
	Value       string `xml:"value,attr"`
}

// DataValueSetBuilder assembles a dataValueSet document. Attribute values
// are escaped by the encoder.
type DataValueSetBuilder struct {
	doc DataValueSetDocument
}

// NewDataValueSetBuilder starts a document for the given data set uid.
func NewDataValueSetBuilder(dataSet string) *DataValueSetBuilder {
	return &DataValueSetBuilder{doc: DataValueSetDocument{DataSet: dataSet}}
}

func (b *DataValueSetBuilder) OrgUnit(orgUnit string) *DataValueSetBuilder {
	b.doc.OrgUnit = orgUnit
	return b
}

func (b *DataValueSetBuilder) Period(period string) *DataValueSetBuilder {
	b.doc.Period = period
	return b
}

func (b *DataValueSetBuilder) CompleteDate(date string) *DataValueSetBuilder {
	b.doc.CompleteDate = date
	return b
}

// Add appends a data value.
func (b *DataValueSetBuilder) Add(dataElement, value string) *DataValueSetBuilder {
	b.doc.DataValues = append(b.doc.DataValues, DataValue{DataElement: dataElement, Value: value})
	return b
}

// Document returns a copy of the document built so far.
func (b *DataValueSetBuilder) Document() DataValueSetDocument {
	doc := b.doc
	doc.DataValues = append([]DataValue(nil), b.doc.DataValues...)
	return doc
}

// Bytes serializes the document with an XML declaration.
func (b *DataValueSetBuilder) Bytes() ([]byte, error) {
	out, err := xml.Marshal(b.doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dataValueSet: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

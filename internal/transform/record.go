package transform

import (
	"encoding/json"
	"strconv"
)

// Family is a kind of destination record.
type Family string

const (
	FamilyProjects      Family = "projects"
	FamilyConsultations Family = "consultations"
)

// HTML is text carrying markup, stored as rich text.
type HTML string

// Category selects an option of a category field.
type Category struct {
	Text string `json:"text"`
	ID   int    `json:"id"`
}

type Email struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Link struct {
	URL string `json:"url"`
}

// Field is one value of a record, keyed by the field's external id.
type Field struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// Record is a transformed response ready to be loaded. Fields keep insertion order.
type Record struct {
	Family   Family  `json:"family"`
	SourceID string  `json:"source_id"`
	Fields   []Field `json:"fields"`
}

func newRecord(family Family, sourceID string) *Record {
	return &Record{Family: family, SourceID: sourceID}
}

func (r *Record) set(id string, value any) {
	for i := range r.Fields {
		if r.Fields[i].ID == id {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{ID: id, Value: value})
}

func (r *Record) Get(id string) (any, bool) {
	for _, f := range r.Fields {
		if f.ID == id {
			return f.Value, true
		}
	}
	return nil, false
}

// Text returns the display text of a field, or "" when it is not set.
func (r *Record) Text(id string) string {
	v, ok := r.Get(id)
	if !ok {
		return ""
	}
	return DisplayValue(v)
}

// Map returns the record as field id -> value.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		m[f.ID] = f.Value
	}
	return m
}

// String renders the whole record as JSON so a failed load can be replayed by hand.
func (r *Record) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		return "<error>"
	}
	return string(b)
}

// DisplayValue flattens a field value to plain text.
func DisplayValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case HTML:
		return string(val)
	case Category:
		return val.Text
	case Email:
		return val.Value
	case Link:
		return val.URL
	case int:
		return strconv.Itoa(val)
	case nil:
		return ""
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

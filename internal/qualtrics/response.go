package qualtrics

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	FieldResponseID = "ResponseID"
	FieldEndDate    = "EndDate"
)

// Response is one respondent's answers keyed by question id ("Q2") or metadata
// name ("EndDate"), in the order they appear in the export.
type Response struct {
	fields *orderedmap.OrderedMap[string, string]
}

// NewResponse builds a response from alternating key/value pairs.
func NewResponse(pairs ...string) *Response {
	r := &Response{fields: orderedmap.New[string, string]()}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.fields.Set(pairs[i], pairs[i+1])
	}
	return r
}

func (r *Response) Get(key string) (string, bool) {
	return r.fields.Get(key)
}

func (r *Response) Len() int {
	return r.fields.Len()
}

// Keys returns the field names in export order.
func (r *Response) Keys() []string {
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

func (r *Response) ID() string {
	id, _ := r.Get(FieldResponseID)
	return id
}

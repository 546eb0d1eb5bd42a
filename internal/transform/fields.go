package transform

import (
	"fmt"
	"strings"

	"github.com/idrk/project-data-sync/internal/qualtrics"
	"github.com/thoas/go-funk"
)

// fieldReader hands out the fields of a response exactly once. The first
// failure sticks and is returned by err.
type fieldReader struct {
	resp     *qualtrics.Response
	consumed map[string]struct{}
	failure  error
}

func newFieldReader(resp *qualtrics.Response) *fieldReader {
	return &fieldReader{resp: resp, consumed: make(map[string]struct{}, resp.Len())}
}

func (f *fieldReader) take(key string) (string, bool) {
	if _, done := f.consumed[key]; done {
		f.fail(fmt.Errorf("%w: %s", ErrFieldReused, key))
		return "", false
	}
	f.consumed[key] = struct{}{}
	return f.resp.Get(key)
}

// required returns the trimmed value of a field that must be answered.
// Exports carry unanswered questions as blank strings, so blank counts as missing.
func (f *fieldReader) required(key string) string {
	v, ok := f.take(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		f.fail(&MissingRequiredFieldError{Field: key, ResponseID: f.resp.ID()})
		return ""
	}
	return v
}

// optional returns the trimmed value of a field, or def when it is absent or blank.
func (f *fieldReader) optional(key, def string) string {
	v, ok := f.take(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return def
	}
	return v
}

func (f *fieldReader) fail(err error) {
	if f.failure == nil {
		f.failure = err
	}
}

func (f *fieldReader) err() error {
	return f.failure
}

// leftover lists the fields nobody read, in export order.
func (f *fieldReader) leftover() []string {
	return funk.FilterString(f.resp.Keys(), func(key string) bool {
		_, done := f.consumed[key]
		return !done
	})
}

package transform

import (
	"strconv"
	"strings"
)

// RecordType is the kind of course offering a project request is for.
type RecordType string

const (
	FirstRun   RecordType = "First Run"
	Repeat     RecordType = "Repeat"
	Derivative RecordType = "Derivative"
)

// recordTypeCodes is the single table behind DecodeRecordType and Code, so
// the two always stay inverse of each other.
var recordTypeCodes = []struct {
	code int
	typ  RecordType
}{
	{1, FirstRun},
	{2, Repeat},
	{3, Derivative},
}

// DecodeRecordType maps the survey's numeric answer to a RecordType.
func DecodeRecordType(code string) (RecordType, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return "", false
	}
	for _, entry := range recordTypeCodes {
		if entry.code == n {
			return entry.typ, true
		}
	}
	return "", false
}

// Code is the category option id of the type in the projects app.
func (t RecordType) Code() int {
	for _, entry := range recordTypeCodes {
		if entry.typ == t {
			return entry.code
		}
	}
	return 0
}

func (t RecordType) String() string {
	return string(t)
}

// RecordTypes lists every known type in code order.
func RecordTypes() []RecordType {
	types := make([]RecordType, 0, len(recordTypeCodes))
	for _, entry := range recordTypeCodes {
		types = append(types, entry.typ)
	}
	return types
}

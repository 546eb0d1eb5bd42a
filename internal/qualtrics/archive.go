package qualtrics

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type exportDocument struct {
	Responses []*orderedmap.OrderedMap[string, any] `json:"responses"`
}

// Decode unpacks an export archive. The archive must hold exactly one JSON
// document with a "responses" array; field order of each response is kept.
// An export without responses yields ErrEmptyExport.
func Decode(archive []byte) ([]*Response, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, &DecodeError{Reason: "cannot open archive", Err: err}
	}
	if len(reader.File) != 1 {
		return nil, &DecodeError{Reason: fmt.Sprintf("expected exactly one file in archive, found %d", len(reader.File))}
	}

	entry := reader.File[0]
	content, err := readEntry(entry)
	if err != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("cannot read %s", entry.Name), Err: err}
	}
	if !utf8.Valid(content) {
		return nil, &DecodeError{Reason: fmt.Sprintf("%s is not valid UTF-8", entry.Name)}
	}

	var doc exportDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("%s is not a valid export document", entry.Name), Err: err}
	}
	if len(doc.Responses) == 0 {
		return nil, ErrEmptyExport
	}

	responses := make([]*Response, 0, len(doc.Responses))
	for i, raw := range doc.Responses {
		if raw == nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("response %d is null", i)}
		}
		resp, err := toResponse(raw)
		if err != nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("response %d", i), Err: err}
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func toResponse(raw *orderedmap.OrderedMap[string, any]) (*Response, error) {
	resp := NewResponse()
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		value, err := stringify(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", pair.Key, err)
		}
		resp.fields.Set(pair.Key, value)
	}
	return resp, nil
}

// stringify turns the loosely typed JSON answers into text. Qualtrics sends most
// answers as strings but choice ids and timers may come as numbers.
func stringify(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

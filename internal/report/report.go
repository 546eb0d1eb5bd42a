package report

import (
	"bytes"
	"fmt"

	"github.com/idrk/project-data-sync/internal/loader"
	"github.com/idrk/project-data-sync/internal/transform"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	failuresSheet = "Failures"
	sourceColumn  = "source_id"
)

var (
	summaryHeader  = []any{"family", "status", "transformed", "loaded", "failed", "detail"}
	failuresHeader = []any{"family", "source_id", "attempts", "error", "record"}
)

// Report is an XLSX workbook describing one run: a summary row per family,
// a sheet per family with the transformed records and a sheet of records
// that could not be loaded.
type Report struct {
	file        *excelize.File
	summaryRow  int
	failuresRow int
}

func New() (*Report, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(failuresSheet); err != nil {
		return nil, err
	}

	r := &Report{file: f, summaryRow: 1, failuresRow: 1}
	if err := r.appendRow(summarySheet, &r.summaryRow, summaryHeader); err != nil {
		return nil, err
	}
	if err := r.appendRow(failuresSheet, &r.failuresRow, failuresHeader); err != nil {
		return nil, err
	}
	return r, nil
}

// AddOutcome appends the summary row of a family.
func (r *Report) AddOutcome(family transform.Family, status string, transformed, loaded, failed int, detail string) error {
	return r.appendRow(summarySheet, &r.summaryRow, []any{string(family), status, transformed, loaded, failed, detail})
}

// AddRecords writes records to the family's sheet, one column per field in
// the order fields first appear.
func (r *Report) AddRecords(family transform.Family, records []*transform.Record) error {
	sheet := string(family)
	if idx, _ := r.file.GetSheetIndex(sheet); idx != -1 {
		return fmt.Errorf("records of %s already added", family)
	}
	if _, err := r.file.NewSheet(sheet); err != nil {
		return err
	}

	columns := []string{sourceColumn}
	index := map[string]int{sourceColumn: 0}
	for _, rec := range records {
		for _, f := range rec.Fields {
			if _, ok := index[f.ID]; !ok {
				index[f.ID] = len(columns)
				columns = append(columns, f.ID)
			}
		}
	}

	row := 1
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := r.appendRow(sheet, &row, header); err != nil {
		return err
	}

	for _, rec := range records {
		values := make([]any, len(columns))
		values[0] = rec.SourceID
		for _, f := range rec.Fields {
			values[index[f.ID]] = transform.DisplayValue(f.Value)
		}
		if err := r.appendRow(sheet, &row, values); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) AddFailures(family transform.Family, failures []*loader.LoadError) error {
	for _, failure := range failures {
		values := []any{string(family), failure.Record.SourceID, failure.Attempts, failure.Err.Error(), failure.Record.String()}
		if err := r.appendRow(failuresSheet, &r.failuresRow, values); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.file.Write(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to render report")
	}
	return buf.Bytes(), nil
}

func (r *Report) Save(path string) error {
	if err := r.file.SaveAs(path); err != nil {
		return errors.Wrapf(err, "failed to save report to %s", path)
	}
	return nil
}

func (r *Report) Close() error {
	return r.file.Close()
}

func (r *Report) appendRow(sheet string, row *int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, *row)
	if err != nil {
		return err
	}
	if err := r.file.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.Wrapf(err, "failed to write row %d of %s", *row, sheet)
	}
	*row++
	return nil
}

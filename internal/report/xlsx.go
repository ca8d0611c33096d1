// Package report writes batch records to spreadsheet and JSON
// documents.
package report

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/hbomb79/mediascan/internal/media"
	"github.com/hbomb79/mediascan/pkg/logger"
	"github.com/xuri/excelize/v2"
)

var log = logger.Get("Report")

var ErrEmptySchema = errors.New("report schema contains no fields")

type (
	Options struct {
		// GroupByFolder places the records of each folder on their own
		// worksheet, sorted by file name.
		GroupByFolder bool
	}

	worksheet struct {
		name    string
		records []*media.Record
	}
)

// WriteXLSX writes the records to a workbook at the path provided. Every
// worksheet has a bold header row naming each field in schema order,
// followed by one row per record. The workbook is written to a temporary
// file and renamed in to place.
func WriteXLSX(path string, schema []string, records []*media.Record, opts Options) error {
	staged, err := stageXLSX(path, schema, records, opts)
	if err != nil {
		return err
	}

	return commitAll(staged)
}

// stageXLSX renders the workbook in to a temporary file alongside path,
// leaving it to the caller to commit or discard.
func stageXLSX(path string, schema []string, records []*media.Record, opts Options) (*stagedFile, error) {
	if len(schema) == 0 {
		return nil, ErrEmptySchema
	}

	book := excelize.NewFile()
	defer book.Close()

	headerStyle, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := []worksheet{{name: DefaultSheetName, records: records}}
	if opts.GroupByFolder && len(records) > 0 {
		sheets = groupByFolder(records)
	}

	// The first worksheet reuses the workbook's default sheet so that it is
	// never left behind empty.
	defaultSheet := book.GetSheetName(0)
	for i, sheet := range sheets {
		if i == 0 {
			err = book.SetSheetName(defaultSheet, sheet.name)
		} else {
			_, err = book.NewSheet(sheet.name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create worksheet %s: %w", sheet.name, err)
		}

		if err := writeSheet(book, sheet.name, schema, sheet.records, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to write worksheet %s: %w", sheet.name, err)
		}
	}
	book.SetActiveSheet(0)

	staged, err := stage(path, func(w io.Writer) error { return book.Write(w) })
	if err != nil {
		return nil, err
	}

	staged.summary = fmt.Sprintf("%d records across %d worksheet(s)", len(records), len(sheets))
	return staged, nil
}

func writeSheet(book *excelize.File, name string, schema []string, records []*media.Record, headerStyle int) error {
	widths := make([]int, len(schema))
	header := make([]any, len(schema))
	for i, key := range schema {
		header[i] = media.FieldLabel(key)
		widths[i] = utf8.RuneCountInString(header[i].(string))
	}

	if err := book.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	if err := book.SetRowStyle(name, 1, 1, headerStyle); err != nil {
		return err
	}

	for r, record := range records {
		row := make([]any, len(schema))
		for i, key := range schema {
			row[i] = cellValue(record, key)
			widths[i] = max(widths[i], utf8.RuneCountInString(record.String(key)))
		}

		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := book.SetColWidth(name, col, col, float64(min(width+2, excelize.MaxColumnWidth))); err != nil {
			return err
		}
	}

	return book.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func cellValue(record *media.Record, key string) any {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return media.NotAvailable
	}

	switch val := v.(type) {
	case string:
		if utf8.RuneCountInString(val) > excelize.TotalCellChars {
			return string([]rune(val)[:excelize.TotalCellChars])
		}
		return val
	case int, int64, float64, bool:
		return val
	}

	return record.String(key)
}

// groupByFolder splits the records by their parent folder. Worksheets are
// ordered by the first appearance of each folder, and the records of each
// worksheet are sorted by file name.
func groupByFolder(records []*media.Record) []worksheet {
	order := make([]string, 0)
	groups := make(map[string][]*media.Record)
	for _, record := range records {
		folder := filepath.Dir(record.String(media.FieldPath))
		if _, ok := groups[folder]; !ok {
			order = append(order, folder)
		}
		groups[folder] = append(groups[folder], record)
	}

	namer := newSheetNamer()
	sheets := make([]worksheet, 0, len(order))
	for _, folder := range order {
		group := groups[folder]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].String(media.FieldFilename) < group[j].String(media.FieldFilename)
		})

		sheets = append(sheets, worksheet{name: namer.next(folder), records: group})
	}

	return sheets
}

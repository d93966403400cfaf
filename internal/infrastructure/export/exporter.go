package csvexport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
)

// Format is an output file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Column describes one exported field
type Column[T any] struct {
	Field  string
	Header Labels
	Value  func(item *T) any
}

// TemplateColumn describes one column of an import template
type TemplateColumn struct {
	Header Labels
	Sample string
}

// Spec describes how an entity is exported
type Spec[T any] struct {
	// SheetName names the XLSX sheet
	SheetName Labels
	// FilePrefix starts the default file names, e.g. "proveedores"
	FilePrefix string
	Columns    []Column[T]
	Template   []TemplateColumn
}

// Sheet is a rendered table: one header row and the data rows
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Exporter renders entities of one type for a locale
type Exporter[T any] struct {
	spec   Spec[T]
	locale language.Tag
}

// NewExporter creates an exporter
func NewExporter[T any](spec Spec[T], locale language.Tag) *Exporter[T] {
	return &Exporter[T]{spec: spec, locale: locale}
}

// Locale returns the locale headers are rendered in
func (e *Exporter[T]) Locale() language.Tag {
	return e.locale
}

// Sheet renders items in the given order
func (e *Exporter[T]) Sheet(items []T) *Sheet {
	sheet := &Sheet{
		Name:   e.spec.SheetName.In(e.locale),
		Header: make([]string, len(e.spec.Columns)),
		Rows:   make([][]string, 0, len(items)),
	}
	for i, col := range e.spec.Columns {
		sheet.Header[i] = col.Header.In(e.locale)
	}
	for i := range items {
		row := make([]string, len(e.spec.Columns))
		for j, col := range e.spec.Columns {
			row[j] = FormatValue(col.Value(&items[i]), e.locale)
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

// TemplateSheet renders the import template: translated headers and one
// sample row
func (e *Exporter[T]) TemplateSheet() *Sheet {
	sheet := &Sheet{
		Name:   e.spec.SheetName.In(e.locale),
		Header: make([]string, len(e.spec.Template)),
		Rows:   [][]string{make([]string, len(e.spec.Template))},
	}
	for i, col := range e.spec.Template {
		sheet.Header[i] = col.Header.In(e.locale)
		sheet.Rows[0][i] = col.Sample
	}
	return sheet
}

// FileName returns the default file name, e.g.
// proveedores_20240301_120000.csv or plantilla_proveedores_20240301_120000.csv
func (e *Exporter[T]) FileName(template bool, format Format, at time.Time) string {
	prefix := e.spec.FilePrefix
	if template {
		prefix = "plantilla_" + prefix
	}
	return fmt.Sprintf("%s_%s.%s", prefix, at.Format("20060102_150405"), format)
}

// Write encodes the sheet in format
func (s *Sheet) Write(w io.Writer, format Format) error {
	switch format {
	case FormatXLSX:
		return s.WriteXLSX(w)
	case FormatCSV, "":
		return s.WriteCSV(w)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// Bytes encodes the sheet in format
func (s *Sheet) Bytes(format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Write(&buf, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes the sheet as comma separated UTF-8
func (s *Sheet) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(s.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(s.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// WriteXLSX writes the sheet as a single-sheet workbook with a bold header
func (s *Sheet) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	name := s.Name
	if name == "" {
		name = "Sheet1"
	}
	if name != "Sheet1" {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	widths := make([]int, len(s.Header))
	for i, h := range s.Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(name, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		widths[i] = len([]rune(h))
	}
	if len(s.Header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(s.Header), 1)
		if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for r, row := range s.Rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStr(name, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", r+2, err)
			}
			if c < len(widths) && len([]rune(value)) > widths[c] {
				widths[c] = len([]rune(value))
			}
		}
	}

	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(name, col, col, float64(min(width, 60)+2)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

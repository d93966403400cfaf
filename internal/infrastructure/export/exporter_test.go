package csvexport

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
)

type fabric struct {
	ID        uuid.UUID
	Name      string
	Price     decimal.Decimal
	Organic   bool
	Notes     *string
	CreatedAt time.Time
}

var fabricSpec = Spec[fabric]{
	SheetName:  Labels{"es": "Telas", "en": "Fabrics"},
	FilePrefix: "telas",
	Columns: []Column[fabric]{
		{Field: "name", Header: Labels{"es": "Nombre", "en": "Name"}, Value: func(f *fabric) any { return f.Name }},
		{Field: "price", Header: Labels{"es": "Precio", "en": "Price"}, Value: func(f *fabric) any { return f.Price }},
		{Field: "organic", Header: Labels{"es": "Orgánico", "en": "Organic"}, Value: func(f *fabric) any { return f.Organic }},
		{Field: "notes", Header: Labels{"es": "Notas", "en": "Notes"}, Value: func(f *fabric) any { return f.Notes }},
		{Field: "created_at", Header: Labels{"es": "Fecha Creación", "en": "Created"}, Value: func(f *fabric) any { return f.CreatedAt }},
	},
	Template: []TemplateColumn{
		{Header: Labels{"es": "Nombre *", "en": "Name *"}, Sample: "Denim 12oz"},
		{Header: Labels{"es": "Precio", "en": "Price"}, Sample: "18500.00"},
	},
}

func sampleFabrics() []fabric {
	notes := "Lavado en piedra, azul"
	return []fabric{
		{
			Name:      "Denim",
			Price:     decimal.RequireFromString("18500.50"),
			Organic:   true,
			Notes:     &notes,
			CreatedAt: time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC),
		},
		{Name: "Lino", Price: decimal.NewFromInt(9000)},
	}
}

func TestParseLocale(t *testing.T) {
	testCases := map[string]language.Tag{
		"es":    language.Spanish,
		"es-CO": language.Spanish,
		"en":    language.English,
		"en-US": language.English,
		"fr":    language.Spanish,
		"":      language.Spanish,
		"%%":    language.Spanish,
	}
	for in, want := range testCases {
		assert.Equal(t, want, ParseLocale(in), in)
	}
}

func TestFormatValue(t *testing.T) {
	es, en := language.Spanish, language.English
	var nilString *string
	var nilTime *time.Time
	ts := time.Date(2024, 12, 31, 23, 59, 1, 0, time.FixedZone("COT", -5*3600))
	id := uuid.MustParse("0190f3a8-7b5c-7d2e-9a41-3c5e8f1b2d46")

	assert.Equal(t, "", FormatValue(nil, es))
	assert.Equal(t, "", FormatValue(nilString, es))
	assert.Equal(t, "", FormatValue(nilTime, es))
	assert.Equal(t, "", FormatValue(time.Time{}, es))
	assert.Equal(t, "", FormatValue(uuid.Nil, es))
	assert.Equal(t, "Sí", FormatValue(true, es))
	assert.Equal(t, "No", FormatValue(false, es))
	assert.Equal(t, "Yes", FormatValue(true, en))
	assert.Equal(t, "2025-01-01 04:59:01", FormatValue(ts, es))
	assert.Equal(t, "2025-01-01 04:59:01", FormatValue(&ts, es))
	assert.Equal(t, "12.50", FormatValue(decimal.RequireFromString("12.50").StringFixed(2), es))
	assert.Equal(t, "12.5", FormatValue(decimal.RequireFromString("12.50"), es))
	assert.Equal(t, id.String(), FormatValue(id, es))
	assert.Equal(t, "42", FormatValue(42, es))
}

func TestExporter_Sheet(t *testing.T) {
	t.Run("spanish", func(t *testing.T) {
		sheet := NewExporter(fabricSpec, language.Spanish).Sheet(sampleFabrics())

		assert.Equal(t, "Telas", sheet.Name)
		assert.Equal(t, []string{"Nombre", "Precio", "Orgánico", "Notas", "Fecha Creación"}, sheet.Header)
		assert.Equal(t, [][]string{
			{"Denim", "18500.5", "Sí", "Lavado en piedra, azul", "2024-03-01 09:05:07"},
			{"Lino", "9000", "No", "", ""},
		}, sheet.Rows)
	})

	t.Run("english", func(t *testing.T) {
		sheet := NewExporter(fabricSpec, language.English).Sheet(sampleFabrics())
		assert.Equal(t, "Name", sheet.Header[0])
		assert.Equal(t, "Yes", sheet.Rows[0][2])
	})

	t.Run("empty list keeps the header", func(t *testing.T) {
		sheet := NewExporter(fabricSpec, language.Spanish).Sheet(nil)
		assert.Len(t, sheet.Header, 5)
		assert.Empty(t, sheet.Rows)
	})
}

func TestExporter_Template(t *testing.T) {
	e := NewExporter(fabricSpec, language.English)
	sheet := e.TemplateSheet()

	assert.Equal(t, []string{"Name *", "Price"}, sheet.Header)
	assert.Equal(t, [][]string{{"Denim 12oz", "18500.00"}}, sheet.Rows)

	at := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "telas_20240301_143000.csv", e.FileName(false, FormatCSV, at))
	assert.Equal(t, "plantilla_telas_20240301_143000.xlsx", e.FileName(true, FormatXLSX, at))
}

func TestSheet_WriteCSV(t *testing.T) {
	sheet := NewExporter(fabricSpec, language.Spanish).Sheet(sampleFabrics())

	data, err := sheet.Bytes(FormatCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Nombre,Precio,Orgánico,Notas,Fecha Creación\n"))
	assert.Contains(t, string(data), `"Lavado en piedra, azul"`)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, append([][]string{sheet.Header}, sheet.Rows...), records)
}

func TestSheet_WriteXLSX(t *testing.T) {
	sheet := NewExporter(fabricSpec, language.Spanish).Sheet(sampleFabrics())

	data, err := sheet.Bytes(FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Telas"}, f.GetSheetList())
	rows, err := f.GetRows("Telas")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, sheet.Header, rows[0])
	assert.Equal(t, "Lavado en piedra, azul", rows[1][3])
	assert.Equal(t, "18500.5", rows[1][1])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)

	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	_, err = (&Sheet{}).Bytes(Format("pdf"))
	assert.Error(t, err)
}

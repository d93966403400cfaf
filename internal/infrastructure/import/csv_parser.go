package csvimport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// SniffSize is how many leading bytes are sampled to detect the delimiter
const SniffSize = 1024

// candidateDelimiters are tried in order; earlier ones win ties
var candidateDelimiters = []rune{',', ';', '\t'}

// CSVParser reads a CSV document row by row. The header row is line 1.
type CSVParser struct {
	delimiter  rune
	sniff      bool
	lazyQuotes bool
	trimSpace  bool
	maxSize    int64
	headers    []string
	currentRow int
	totalRows  int
	reader     *csv.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter forces the field delimiter and disables sniffing
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
		p.sniff = false
	}
}

// WithLazyQuotes enables lazy quote handling
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *CSVParser) {
		p.lazyQuotes = lazy
	}
}

// WithTrimSpace enables trimming of leading/trailing spaces from fields
func WithTrimSpace(trim bool) ParserOption {
	return func(p *CSVParser) {
		p.trimSpace = trim
	}
}

// WithMaxSize rejects documents larger than n bytes. Zero means no limit.
func WithMaxSize(n int64) ParserOption {
	return func(p *CSVParser) {
		p.maxSize = n
	}
}

// NewCSVParser reads the whole document, strips a UTF-8 byte order mark,
// checks the encoding and detects the delimiter
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	parser := &CSVParser{
		delimiter:  ',',
		sniff:      true,
		lazyQuotes: true,
		trimSpace:  true,
	}
	for _, opt := range opts {
		opt(parser)
	}

	if parser.maxSize > 0 {
		r = io.LimitReader(r, parser.maxSize+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if parser.maxSize > 0 && int64(len(content)) > parser.maxSize {
		return nil, ErrFileTooLarge
	}

	content = bytes.TrimPrefix(content, utf8BOM)
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidEncoding
	}

	if parser.sniff {
		parser.delimiter = SniffDelimiter(content)
	}

	parser.reader = csv.NewReader(bytes.NewReader(content))
	parser.reader.Comma = parser.delimiter
	parser.reader.LazyQuotes = parser.lazyQuotes
	parser.reader.FieldsPerRecord = -1 // Allow variable number of fields

	return parser, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SniffDelimiter picks the delimiter from the first SniffSize bytes.
// A candidate must appear in the header line; among those, the one whose
// count is the same on the most sampled lines wins. Comma is the fallback.
func SniffDelimiter(content []byte) rune {
	sample := content
	truncated := false
	if len(sample) > SniffSize {
		sample = sample[:SniffSize]
		truncated = true
	}

	lines := strings.Split(strings.ReplaceAll(string(sample), "\r\n", "\n"), "\n")
	if truncated && len(lines) > 1 {
		lines = lines[:len(lines)-1] // last line is cut
	}

	best, bestConsistent, bestHeader := ',', 0, 0
	for _, d := range candidateDelimiters {
		header := countOutsideQuotes(lines[0], d)
		if header == 0 {
			continue
		}
		consistent := 0
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if countOutsideQuotes(line, d) == header {
				consistent++
			}
		}
		if consistent > bestConsistent || (consistent == bestConsistent && header > bestHeader) {
			best, bestConsistent, bestHeader = d, consistent, header
		}
	}
	return best
}

func countOutsideQuotes(line string, d rune) int {
	n := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == d && !quoted:
			n++
		}
	}
	return n
}

// Delimiter returns the delimiter in use
func (p *CSVParser) Delimiter() rune {
	return p.delimiter
}

// ParseHeader reads and parses the header row
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, len(record))
	empty := true
	for i, h := range record {
		header := h
		if p.trimSpace {
			header = strings.TrimSpace(header)
		}
		if header != "" {
			empty = false
		}
		p.headers[i] = header
	}
	if empty {
		return ErrMissingHeader
	}

	p.currentRow = 1 // Header is line 1
	return nil
}

// Headers returns the parsed header names
func (p *CSVParser) Headers() []string {
	return p.headers
}

// Row represents a parsed CSV row with its data and line number.
// Values holds one cell per column; Data is keyed by header and keeps the
// first non-empty value when a header repeats.
type Row struct {
	LineNumber int
	Columns    []string
	Values     []string
	Data       map[string]string
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next row. The Nth data row is line N+1 whatever its
// physical position. A malformed row returns a RowError and the parser can
// continue with the next one.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	p.totalRows++
	if err != nil {
		return nil, NewRowError(p.currentRow, "", ErrCodeImportMalformedRow, fmt.Sprintf("Malformed row: %v", err))
	}

	row := &Row{
		LineNumber: p.currentRow,
		Columns:    p.headers,
		Values:     make([]string, len(p.headers)),
		Data:       make(map[string]string, len(p.headers)),
	}
	for i, header := range p.headers {
		value := ""
		if i < len(record) {
			value = record[i]
			if p.trimSpace {
				value = strings.TrimSpace(value)
			}
		}
		row.Values[i] = value
		if header == "" {
			continue
		}
		if prev, ok := row.Data[header]; ok && prev != "" {
			continue
		}
		row.Data[header] = value
	}
	return row, nil
}

// CurrentRow returns the line number of the last row read
func (p *CSVParser) CurrentRow() int {
	return p.currentRow
}

// TotalRows returns the number of data rows read, malformed ones included
func (p *CSVParser) TotalRows() int {
	return p.totalRows
}

// ParseFromBytes creates a parser from a byte slice
func ParseFromBytes(data []byte, opts ...ParserOption) (*CSVParser, error) {
	return NewCSVParser(bytes.NewReader(data), opts...)
}

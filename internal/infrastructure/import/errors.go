package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Import error codes
const (
	// General import errors
	ErrCodeImportUnknown      = "ERR_IMPORT_UNKNOWN"
	ErrCodeImportEmptyFile    = "ERR_IMPORT_EMPTY_FILE"
	ErrCodeImportFileTooLarge = "ERR_IMPORT_FILE_TOO_LARGE"

	// Encoding errors
	ErrCodeImportInvalidEncoding = "ERR_IMPORT_INVALID_ENCODING"

	// CSV parsing errors
	ErrCodeImportMissingHeader = "ERR_IMPORT_MISSING_HEADER"
	ErrCodeImportMalformedRow  = "ERR_IMPORT_MALFORMED_ROW"

	// Validation errors
	ErrCodeImportValidation    = "ERR_IMPORT_VALIDATION"
	ErrCodeImportRequiredField = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeImportInvalidFormat = "ERR_IMPORT_INVALID_FORMAT"
	ErrCodeImportInvalidLength = "ERR_IMPORT_INVALID_LENGTH"
	ErrCodeImportDuplicateInDB = "ERR_IMPORT_DUPLICATE_IN_DB"

	// Persistence errors
	ErrCodeImportSaveFailed = "ERR_IMPORT_SAVE_FAILED"
)

// Common import errors
var (
	// ErrEmptyFile is returned when the CSV file is empty
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the file is not valid UTF-8
	ErrInvalidEncoding = errors.New("invalid file encoding, expected UTF-8")

	// ErrMissingHeader is returned when the CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")

	// ErrFileTooLarge is returned when the file exceeds maximum size
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
)

// FileErrorCode maps a file-level error to its import error code
func FileErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrEmptyFile):
		return ErrCodeImportEmptyFile
	case errors.Is(err, ErrInvalidEncoding):
		return ErrCodeImportInvalidEncoding
	case errors.Is(err, ErrMissingHeader):
		return ErrCodeImportMissingHeader
	case errors.Is(err, ErrFileTooLarge):
		return ErrCodeImportFileTooLarge
	default:
		return ErrCodeImportUnknown
	}
}

// RowError represents an error in a specific row. Row is the 1-indexed
// line number with the header as line 1.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	return fmt.Sprintf("Line %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, code, message string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
	}
}

// NewRowErrorWithValue creates a new RowError with the invalid value
func NewRowErrorWithValue(row int, column, code, message, value string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
		Value:   value,
	}
}

// ErrorCollection keeps the first maxErrors row errors and counts the rest
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 1000
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// Messages returns the collected errors as "Line N: message" strings
func (ec *ErrorCollection) Messages() []string {
	msgs := make([]string, len(ec.errors))
	for i, err := range ec.errors {
		msgs[i] = err.Error()
	}
	return msgs
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// ErrorSummary returns a summary of errors by code
func (ec *ErrorCollection) ErrorSummary() map[string]int {
	summary := make(map[string]int)
	for _, err := range ec.errors {
		summary[err.Code]++
	}
	return summary
}

// String returns a string representation of all errors
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s) found", ec.totalCount))
	if ec.IsTruncated() {
		sb.WriteString(fmt.Sprintf(" (showing first %d)", ec.maxErrors))
	}
	sb.WriteString(":\n")

	for _, err := range ec.errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}

	return sb.String()
}

// Result summarizes an import run. Dry runs and real runs report the
// same shape.
type Result struct {
	ImportedCount int        `json:"imported_count"`
	SkippedCount  int        `json:"skipped_count"`
	ErrorCount    int        `json:"error_count"`
	Errors        []string   `json:"errors"`
	ValidateOnly  bool       `json:"validate_only"`
	TotalRows     int        `json:"total_rows"`
	Details       []RowError `json:"-"`
}

// HasErrors returns true if any row failed
func (r *Result) HasErrors() bool {
	return r.ErrorCount > 0
}

func (r *Result) setErrors(ec *ErrorCollection) {
	r.ErrorCount = ec.TotalCount()
	r.Errors = ec.Messages()
	r.Details = ec.Errors()
}

// AbortError is returned when a row fails and the run is not allowed to
// continue. Result holds the counters and the errors collected so far.
type AbortError struct {
	Line    int
	Message string
	Result  *Result
}

// Error implements the error interface
func (e *AbortError) Error() string {
	return fmt.Sprintf("Import failed at line %d: %s", e.Line, e.Message)
}

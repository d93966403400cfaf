package csvimport

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/textileplan/backend/internal/domain/shared"
	"github.com/textileplan/backend/internal/infrastructure/logger"
	"github.com/textileplan/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Default pipeline limits
const (
	DefaultBatchSize = 100
	DefaultMaxErrors = 1000
)

// InstanceFactory builds an entity from a validated record
type InstanceFactory[T any] interface {
	Build(rec Record) (*T, error)
}

// FactoryFunc adapts a function to InstanceFactory
type FactoryFunc[T any] func(rec Record) (*T, error)

// Build implements InstanceFactory
func (f FactoryFunc[T]) Build(rec Record) (*T, error) {
	return f(rec)
}

// DuplicateChecker finds records whose natural key is already stored.
// Key returns the normalized natural key of a record.
type DuplicateChecker interface {
	Key(rec Record) string
	Exists(ctx context.Context, rec Record) (bool, error)
}

// BatchStore persists a batch of entities
type BatchStore[T any] interface {
	SaveBatch(ctx context.Context, items []*T) error
}

// Binding plugs an entity into the generic pipeline
type Binding[T any] struct {
	Entity     string
	Mapper     FieldMapper
	Validator  RowValidator
	Factory    InstanceFactory[T]
	Duplicates DuplicateChecker
	Store      BatchStore[T]
}

// Options controls one import run
type Options struct {
	BatchSize       int
	MaxErrors       int
	MaxFileSize     int64
	ValidateOnly    bool
	SkipDuplicates  bool
	ContinueOnError bool
}

// DefaultOptions returns the options of a regular import
func DefaultOptions() Options {
	return Options{
		BatchSize:       DefaultBatchSize,
		MaxErrors:       DefaultMaxErrors,
		SkipDuplicates:  true,
		ContinueOnError: true,
	}
}

// Pipeline reads, maps, validates, deduplicates and stages rows of a CSV
// document for one entity type
type Pipeline[T any] struct {
	binding Binding[T]
	tx      shared.TxManager
	metrics *telemetry.PlanningMetrics
}

// NewPipeline creates a pipeline for a binding. Row outcomes are counted
// on the global meter provider.
func NewPipeline[T any](binding Binding[T], tx shared.TxManager) *Pipeline[T] {
	return &Pipeline[T]{binding: binding, tx: tx, metrics: telemetry.Metrics()}
}

// WithMetrics makes the pipeline count row outcomes on m
func (p *Pipeline[T]) WithMetrics(m *telemetry.PlanningMetrics) *Pipeline[T] {
	p.metrics = m
	return p
}

var errDryRun = errors.New("dry run rollback")

// Run imports r. Each batch commits in its own transaction. With
// ValidateOnly the whole run happens inside one transaction that is
// always rolled back, so the result reports what would have been stored.
//
// A file-level problem (empty, too large, no header) is returned as an
// error with no result. When a row fails and ContinueOnError is false the
// run stops with an *AbortError; batches committed before it stay.
func (p *Pipeline[T]) Run(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = DefaultMaxErrors
	}

	ctx, span := telemetry.StartSpan(ctx, "csvimport.run",
		telemetry.SpanAttrEntityKind, p.binding.Entity,
		telemetry.SpanAttrDryRun, opts.ValidateOnly,
	)
	defer span.End()

	var (
		res *Result
		err error
	)
	if opts.ValidateOnly {
		txErr := p.tx.RunInTransaction(ctx, func(ctx context.Context) error {
			res, err = p.process(ctx, r, opts)
			return errDryRun
		})
		if txErr != nil && !errors.Is(txErr, errDryRun) && err == nil {
			err = txErr
		}
	} else {
		res, err = p.process(ctx, r, opts)
	}

	if res != nil {
		p.metrics.RecordImport(ctx, p.binding.Entity, opts.ValidateOnly, res.ImportedCount, res.SkippedCount, res.ErrorCount)
		telemetry.SetAttributes(span,
			telemetry.SpanAttrRowCount, res.TotalRows,
			telemetry.SpanAttrUpdated, res.ImportedCount,
			telemetry.SpanAttrFailed, res.ErrorCount,
		)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return res, err
	}

	logger.L(ctx).Info("CSV import finished",
		zap.String("entity", p.binding.Entity),
		zap.Bool("validate_only", opts.ValidateOnly),
		zap.Int("imported", res.ImportedCount),
		zap.Int("skipped", res.SkippedCount),
		zap.Int("errors", res.ErrorCount),
	)
	return res, nil
}

// run holds the state of one pass over a document. seen holds the keys of
// saved rows, staged the keys of the batch not yet saved.
type run[T any] struct {
	p      *Pipeline[T]
	opts   Options
	res    *Result
	errs   *ErrorCollection
	seen   map[string]int
	staged map[string]int
	batch  []*T
	lines  []int
	batchN int
}

func (p *Pipeline[T]) process(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	parser, err := NewCSVParser(r, WithMaxSize(opts.MaxFileSize))
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if m, ok := p.binding.Mapper.(*AliasMapper); ok {
		if unmapped := m.Unmapped(parser.Headers()); len(unmapped) > 0 {
			logger.L(ctx).Debug("Ignoring unmapped columns",
				zap.String("entity", p.binding.Entity),
				zap.Strings("columns", unmapped),
			)
		}
	}

	st := &run[T]{
		p:    p,
		opts: opts,
		res:  &Result{ValidateOnly: opts.ValidateOnly, Errors: []string{}},
		errs: NewErrorCollection(opts.MaxErrors),
		seen:   make(map[string]int),
		staged: make(map[string]int),
	}

	for {
		if err := ctx.Err(); err != nil {
			st.res.setErrors(st.errs)
			return st.res, err
		}

		row, err := parser.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			st.res.TotalRows++
			var rowErr RowError
			if !errors.As(err, &rowErr) {
				rowErr = unexpectedRowError(parser.CurrentRow(), err)
			}
			if abort := st.fail(rowErr); abort != nil {
				return st.res, abort
			}
			continue
		}
		st.res.TotalRows++

		if rowErr, ok := st.handle(ctx, row); !ok {
			if abort := st.fail(rowErr); abort != nil {
				return st.res, abort
			}
			continue
		}

		if len(st.batch) >= opts.BatchSize {
			if abort := st.flush(ctx); abort != nil {
				return st.res, abort
			}
		}
	}

	if abort := st.flush(ctx); abort != nil {
		return st.res, abort
	}
	st.res.setErrors(st.errs)
	return st.res, nil
}

// handle maps, validates, deduplicates and stages one row. It returns
// false with the row error when the row fails.
func (st *run[T]) handle(ctx context.Context, row *Row) (RowError, bool) {
	b := st.p.binding
	line := row.LineNumber

	rec := b.Mapper.MapRow(row)
	if len(rec) == 0 {
		st.res.SkippedCount++
		return RowError{}, true
	}

	clean, ferr := b.Validator.Validate(rec)
	if ferr != nil {
		return NewRowErrorWithValue(line, ferr.Column, ferr.Code, ferr.Message, ferr.Value), false
	}

	key := ""
	if st.opts.SkipDuplicates && b.Duplicates != nil {
		key = b.Duplicates.Key(clean)
		if st.isKnown(key) {
			st.res.SkippedCount++
			return RowError{}, true
		}
		exists, err := b.Duplicates.Exists(ctx, clean)
		if err != nil {
			return unexpectedRowError(line, err), false
		}
		if exists {
			logger.L(ctx).Debug("Skipping duplicate row",
				zap.String("entity", b.Entity),
				zap.Int("line", line),
			)
			st.res.SkippedCount++
			return RowError{}, true
		}
	}

	item, err := b.Factory.Build(clean)
	if err != nil {
		if shared.IsExpected(err) {
			return NewRowError(line, "", ErrCodeImportValidation, err.Error()), false
		}
		return unexpectedRowError(line, err), false
	}

	if key != "" {
		st.staged[key] = line
	}
	st.batch = append(st.batch, item)
	st.lines = append(st.lines, line)
	st.res.ImportedCount++
	return RowError{}, true
}

// flush saves the staged batch in its own transaction. A failed batch
// turns into one error per staged row.
func (st *run[T]) flush(ctx context.Context) *AbortError {
	if len(st.batch) == 0 {
		return nil
	}
	st.batchN++
	batch, lines, staged := st.batch, st.lines, st.staged
	st.batch, st.lines, st.staged = nil, nil, make(map[string]int)

	ctx, span := telemetry.StartSpan(ctx, "csvimport.batch",
		telemetry.SpanAttrEntityKind, st.p.binding.Entity,
		telemetry.SpanAttrRowCount, len(batch),
	)
	defer span.End()

	err := st.p.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		return st.p.binding.Store.SaveBatch(ctx, batch)
	})
	if err == nil {
		for key, line := range staged {
			st.seen[key] = line
		}
		logger.L(ctx).Debug("Saved import batch",
			zap.String("entity", st.p.binding.Entity),
			zap.Int("batch", st.batchN),
			zap.Int("rows", len(batch)),
		)
		return nil
	}

	telemetry.RecordError(span, err)
	logger.L(ctx).Error("Failed to save import batch",
		zap.String("entity", st.p.binding.Entity),
		zap.Int("batch", st.batchN),
		zap.Int("first_line", lines[0]),
		zap.Error(err),
	)

	st.res.ImportedCount -= len(batch)
	msg := "Failed to save batch: " + shared.PublicMessage(err)
	for _, line := range lines {
		st.errs.Add(NewRowError(line, "", ErrCodeImportSaveFailed, msg))
	}
	if !st.opts.ContinueOnError {
		st.res.setErrors(st.errs)
		return &AbortError{Line: lines[0], Message: msg, Result: st.res}
	}
	return nil
}

// fail records a row error and aborts the run when errors are fatal
func (st *run[T]) fail(rowErr RowError) *AbortError {
	st.errs.Add(rowErr)
	if st.opts.ContinueOnError {
		return nil
	}
	// staged rows of an aborted run are dropped
	st.res.ImportedCount -= len(st.batch)
	st.batch, st.lines = nil, nil
	st.staged = make(map[string]int)
	st.res.setErrors(st.errs)
	return &AbortError{Line: rowErr.Row, Message: rowErr.Message, Result: st.res}
}

// isKnown reports whether key belongs to a saved row or to the pending batch
func (st *run[T]) isKnown(key string) bool {
	if _, ok := st.seen[key]; ok {
		return true
	}
	_, ok := st.staged[key]
	return ok
}

func unexpectedRowError(line int, err error) RowError {
	return NewRowError(line, "", ErrCodeImportUnknown, fmt.Sprintf("Unexpected error - %s", shared.PublicMessage(err)))
}

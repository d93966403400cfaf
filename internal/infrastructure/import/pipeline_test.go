package csvimport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/textileplan/backend/internal/domain/shared"
	"github.com/textileplan/backend/internal/infrastructure/telemetry"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type contact struct {
	Name  string
	Email string
}

// memStore keeps saved contacts; memTx rolls the slice back on error,
// nested calls behave like savepoints
type memStore struct {
	items   []*contact
	batches int
	failOn  string
}

func (s *memStore) SaveBatch(_ context.Context, items []*contact) error {
	s.batches++
	for _, c := range items {
		if c.Name == s.failOn {
			return errors.New("disk full")
		}
		s.items = append(s.items, c)
	}
	return nil
}

func (s *memStore) names() []string {
	out := make([]string, len(s.items))
	for i, c := range s.items {
		out[i] = c.Name
	}
	return out
}

type memTx struct {
	store *memStore
}

func (m *memTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	mark := len(m.store.items)
	if err := fn(ctx); err != nil {
		m.store.items = m.store.items[:mark]
		return err
	}
	return nil
}

type nameDuplicates struct {
	store *memStore
}

func (d nameDuplicates) Key(rec Record) string {
	return strings.ToLower(rec.Get("name"))
}

func (d nameDuplicates) Exists(_ context.Context, rec Record) (bool, error) {
	for _, c := range d.store.items {
		if strings.EqualFold(c.Name, rec.Get("name")) {
			return true, nil
		}
	}
	return false, nil
}

func newContactPipeline(store *memStore) *Pipeline[contact] {
	return NewPipeline(Binding[contact]{
		Entity: "contacts",
		Mapper: NewAliasMapper([]string{"name", "email"}, map[string][]string{
			"name":  {"nombre"},
			"email": {"correo"},
		}),
		Validator: NewRuleSet(
			Field("name").Label("Contact name").Required().MaxLength(20).Build(),
			Field("email").Email().Clean(strings.ToLower).Build(),
		),
		Factory: FactoryFunc[contact](func(rec Record) (*contact, error) {
			if rec.Get("name") == "Reservado" {
				return nil, shared.NewValidationError("name", "Name is reserved")
			}
			if rec.Get("name") == "Explota" {
				return nil, errors.New("pq: connection reset")
			}
			return &contact{Name: rec.Get("name"), Email: rec.Get("email")}, nil
		}),
		Duplicates: nameDuplicates{store: store},
		Store:      store,
	}, &memTx{store: store})
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()
	csv := "nombre,correo\nAna,ANA@x.co\nBeto,no-es-correo\nCaro,caro@x.co\n"

	t.Run("continue on error imports valid rows", func(t *testing.T) {
		store := &memStore{}
		res, err := newContactPipeline(store).Run(ctx, strings.NewReader(csv), DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, 2, res.ImportedCount)
		assert.Equal(t, 0, res.SkippedCount)
		assert.Equal(t, 1, res.ErrorCount)
		assert.Equal(t, []string{"Line 3: Invalid email format: no-es-correo"}, res.Errors)
		assert.Equal(t, "email", res.Details[0].Column)
		assert.Equal(t, 3, res.TotalRows)
		assert.False(t, res.ValidateOnly)
		assert.Equal(t, []string{"Ana", "Caro"}, store.names())
		assert.Equal(t, "ana@x.co", store.items[0].Email)
	})

	t.Run("fail fast aborts with collected errors", func(t *testing.T) {
		store := &memStore{}
		opts := DefaultOptions()
		opts.ContinueOnError = false

		res, err := newContactPipeline(store).Run(ctx, strings.NewReader(csv), opts)
		var abort *AbortError
		require.ErrorAs(t, err, &abort)
		assert.Equal(t, "Import failed at line 3: Invalid email format: no-es-correo", err.Error())
		assert.Same(t, res, abort.Result)
		assert.Equal(t, 0, res.ImportedCount)
		assert.Equal(t, []string{"Line 3: Invalid email format: no-es-correo"}, res.Errors)
		assert.Empty(t, store.items)
	})

	t.Run("fail fast keeps committed batches", func(t *testing.T) {
		store := &memStore{}
		opts := DefaultOptions()
		opts.ContinueOnError = false
		opts.BatchSize = 1

		_, err := newContactPipeline(store).Run(ctx, strings.NewReader(csv), opts)
		require.Error(t, err)
		assert.Equal(t, []string{"Ana"}, store.names())
	})

	t.Run("validate only persists nothing and reports the same shape", func(t *testing.T) {
		store := &memStore{}
		opts := DefaultOptions()
		opts.ValidateOnly = true

		res, err := newContactPipeline(store).Run(ctx, strings.NewReader(csv), opts)
		require.NoError(t, err)
		assert.True(t, res.ValidateOnly)
		assert.Equal(t, 2, res.ImportedCount)
		assert.Equal(t, 1, res.ErrorCount)
		assert.Empty(t, store.items)
		assert.Equal(t, 1, store.batches)
	})

	t.Run("file errors have no result", func(t *testing.T) {
		res, err := newContactPipeline(&memStore{}).Run(ctx, strings.NewReader(""), DefaultOptions())
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrEmptyFile)

		opts := DefaultOptions()
		opts.ValidateOnly = true
		_, err = newContactPipeline(&memStore{}).Run(ctx, strings.NewReader(",\n"), opts)
		assert.ErrorIs(t, err, ErrMissingHeader)
	})
}

func TestPipeline_Duplicates(t *testing.T) {
	ctx := context.Background()
	csv := "name,email\nAna,a@x.co\nana,otra@x.co\nBeto,b@x.co\n"

	t.Run("skips rows already stored or staged", func(t *testing.T) {
		store := &memStore{items: []*contact{{Name: "BETO"}}}
		res, err := newContactPipeline(store).Run(ctx, strings.NewReader(csv), DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, 1, res.ImportedCount)
		assert.Equal(t, 2, res.SkippedCount)
		assert.Equal(t, 0, res.ErrorCount)
		assert.Equal(t, []string{"BETO", "Ana"}, store.names())
	})

	t.Run("re-import with skip yields only skips", func(t *testing.T) {
		store := &memStore{}
		p := newContactPipeline(store)
		_, err := p.Run(ctx, strings.NewReader(csv), DefaultOptions())
		require.NoError(t, err)

		res, err := p.Run(ctx, strings.NewReader(csv), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, 0, res.ImportedCount)
		assert.Equal(t, 3, res.SkippedCount)
		assert.Equal(t, 0, res.ErrorCount)
	})

	t.Run("without skip every row is imported", func(t *testing.T) {
		store := &memStore{}
		opts := DefaultOptions()
		opts.SkipDuplicates = false

		res, err := newContactPipeline(store).Run(ctx, strings.NewReader(csv), opts)
		require.NoError(t, err)
		assert.Equal(t, 3, res.ImportedCount)
		assert.Len(t, store.items, 3)
	})
}

func TestPipeline_Rows(t *testing.T) {
	ctx := context.Background()

	t.Run("rows without mapped data are skipped", func(t *testing.T) {
		store := &memStore{}
		res, err := newContactPipeline(store).Run(ctx, strings.NewReader("name,fax\n,123\nAna,\n"), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, 1, res.SkippedCount)
		assert.Equal(t, 1, res.ImportedCount)
	})

	t.Run("factory errors", func(t *testing.T) {
		store := &memStore{}
		res, err := newContactPipeline(store).Run(ctx, strings.NewReader("name\nReservado\nExplota\nAna\n"), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Line 2: name: Name is reserved",
			"Line 3: Unexpected error - The operation could not be completed",
		}, res.Errors)
		assert.Equal(t, ErrCodeImportUnknown, res.Details[1].Code)
		assert.Equal(t, 1, res.ImportedCount)
	})

	t.Run("failed batch reports every row", func(t *testing.T) {
		store := &memStore{failOn: "Caro"}
		opts := DefaultOptions()
		opts.BatchSize = 2

		res, err := newContactPipeline(store).Run(ctx, strings.NewReader("name\nAna\nBeto\nCaro\nDani\nEli\n"), opts)
		require.NoError(t, err)
		assert.Equal(t, 3, res.ImportedCount)
		assert.Equal(t, 2, res.ErrorCount)
		assert.Equal(t, "Line 4: Failed to save batch: The operation could not be completed", res.Errors[0])
		assert.Equal(t, ErrCodeImportSaveFailed, res.Details[1].Code)
		assert.Equal(t, 5, res.Details[1].Row)
		assert.Equal(t, []string{"Ana", "Beto", "Eli"}, store.names())
		assert.Equal(t, 3, store.batches)
	})

	t.Run("rows of a failed batch do not shadow later duplicates", func(t *testing.T) {
		store := &memStore{failOn: "Caro"}
		opts := DefaultOptions()
		opts.BatchSize = 2

		res, err := newContactPipeline(store).Run(ctx, strings.NewReader("name\nBeto\nCaro\nDani\nbeto\n"), opts)
		require.NoError(t, err)
		assert.Equal(t, []string{"Dani", "beto"}, store.names())
		assert.Equal(t, 2, res.ImportedCount)
		assert.Equal(t, 0, res.SkippedCount)
		assert.Equal(t, 2, res.ErrorCount)
	})

	t.Run("failed batch aborts a fail fast run", func(t *testing.T) {
		store := &memStore{failOn: "Ana"}
		opts := DefaultOptions()
		opts.ContinueOnError = false

		res, err := newContactPipeline(store).Run(ctx, strings.NewReader("name\nAna\nBeto\n"), opts)
		var abort *AbortError
		require.ErrorAs(t, err, &abort)
		assert.Equal(t, 2, abort.Line)
		assert.Equal(t, 0, res.ImportedCount)
		assert.Equal(t, 2, res.ErrorCount)
	})

	t.Run("error list is capped", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("name,email\n")
		for i := 0; i < 5; i++ {
			fmt.Fprintf(&sb, "N%d,bad\n", i)
		}
		opts := DefaultOptions()
		opts.MaxErrors = 2

		res, err := newContactPipeline(&memStore{}).Run(ctx, strings.NewReader(sb.String()), opts)
		require.NoError(t, err)
		assert.Equal(t, 5, res.ErrorCount)
		assert.Len(t, res.Errors, 2)
	})

	t.Run("cancelled context stops the run", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := newContactPipeline(&memStore{}).Run(cctx, strings.NewReader("name\nAna\n"), DefaultOptions())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// importRows sums the import row counter over points with outcome
func importRows(t *testing.T, reader *sdkmetric.ManualReader, outcome string, dryRun bool) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != telemetry.MetricImportRows {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				o, _ := dp.Attributes.Value(telemetry.MetricAttrOutcome)
				d, _ := dp.Attributes.Value(telemetry.MetricAttrDryRun)
				e, _ := dp.Attributes.Value(telemetry.MetricAttrEntity)
				if o.AsString() == outcome && d.AsBool() == dryRun && e.AsString() == "contacts" {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestPipeline_Metrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })
	m, err := telemetry.NewPlanningMetrics(provider.Meter("test"))
	require.NoError(t, err)

	csv := "name,email\nAna,a@x.co\nana,otra@x.co\nBeto,no-es-correo\nCaro,c@x.co\n"

	store := &memStore{}
	_, err = newContactPipeline(store).WithMetrics(m).Run(ctx, strings.NewReader(csv), DefaultOptions())
	require.NoError(t, err)
	assert.EqualValues(t, 2, importRows(t, reader, telemetry.OutcomeImported, false))
	assert.EqualValues(t, 1, importRows(t, reader, telemetry.OutcomeSkipped, false))
	assert.EqualValues(t, 1, importRows(t, reader, telemetry.OutcomeFailed, false))

	opts := DefaultOptions()
	opts.ValidateOnly = true
	_, err = newContactPipeline(&memStore{}).WithMetrics(m).Run(ctx, strings.NewReader(csv), opts)
	require.NoError(t, err)
	assert.EqualValues(t, 2, importRows(t, reader, telemetry.OutcomeImported, true))
	assert.EqualValues(t, 2, importRows(t, reader, telemetry.OutcomeImported, false))
}

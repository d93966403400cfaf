package csvio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"github.com/textileplan/backend/internal/domain/partner"
	"github.com/textileplan/backend/internal/infrastructure/config"
	"github.com/textileplan/backend/internal/infrastructure/persistence"
)

// testEnv wires the csv services over an in-memory sqlite database
type testEnv struct {
	providers *persistence.GormProviderRepository
	history   *persistence.GormImportHistoryRepository
	importer  *ProviderImportService
	exporter  *ProviderExportService
}

var fixedNow = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

func newTestEnv(t *testing.T, opts ...ExportOption) *testEnv {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		providers: persistence.NewGormProviderRepository(db.DB),
		history:   persistence.NewGormImportHistoryRepository(db.DB),
	}
	env.importer = NewProviderImportService(env.providers, env.history, db.TxManager())
	env.exporter = NewProviderExportService(env.providers, append([]ExportOption{WithClock(func() time.Time { return fixedNow })}, opts...)...)
	return env
}

func (env *testEnv) count(t *testing.T) int64 {
	t.Helper()
	n, err := env.providers.Count(context.Background())
	require.NoError(t, err)
	return n
}

// seedFake stores n providers with fake but valid contact data
func (env *testEnv) seedFake(t *testing.T, seed uint64, n int) []*partner.Provider {
	t.Helper()
	f := gofakeit.New(seed)
	out := make([]*partner.Provider, 0, n)
	for i := 0; i < n; i++ {
		p, err := partner.NewProvider(
			fmt.Sprintf("%s %03d", f.Company(), i),
			f.Email(),
			f.Phone(),
			f.Address().Address,
			f.Sentence(8),
		)
		require.NoError(t, err)
		require.NoError(t, env.providers.Save(context.Background(), p))
		out = append(out, p)
	}
	return out
}

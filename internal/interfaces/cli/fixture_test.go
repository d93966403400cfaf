package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/textileplan/backend/internal/domain/catalog"
	"github.com/textileplan/backend/internal/domain/partner"
	"github.com/textileplan/backend/internal/domain/production"
	"github.com/textileplan/backend/internal/infrastructure/config"
	"github.com/textileplan/backend/internal/infrastructure/persistence"
	"github.com/textileplan/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// testEnv is a runtime over an in-memory sqlite database shared by every
// command run in one test
type testEnv struct {
	rt      *Runtime
	db      *persistence.Database
	objects *storage.MemoryObjectStorage
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"},
		Import:   config.ImportConfig{BatchSize: 100, MaxErrors: 100, MaxFileSize: 10 << 20},
		Export:   config.ExportConfig{Locale: "es", Directory: filepath.Join(dir, "exports")},
		Storage:  config.StorageConfig{Bucket: "planning", PresignExpiration: time.Hour},
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	objects := storage.NewMemoryObjectStorage()
	return &testEnv{
		rt:      NewRuntime(cfg, zap.NewNop(), db, objects),
		db:      db,
		objects: objects,
		dir:     dir,
	}
}

// run executes one planctl invocation and returns its exit code and output
func (env *testEnv) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	c := New(func(context.Context) (*Runtime, func(), error) {
		return env.rt, func() {}, nil
	})
	var stdout, stderr bytes.Buffer
	c.Root().SetOut(&stdout)
	c.Root().SetErr(&stderr)
	code := c.Execute(context.Background(), args)
	return code, stdout.String(), stderr.String()
}

// writeFile creates a file under the test directory
func (env *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(env.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (env *testEnv) providerCount(t *testing.T) int64 {
	t.Helper()
	n, err := persistence.NewGormProviderRepository(env.db.DB).Count(context.Background())
	require.NoError(t, err)
	return n
}

// costGraph is one path price → line → template → product → budget line → budget
type costGraph struct {
	template *production.BOMTemplate
	product  *production.EndProduct
	budget   *production.ProductionBudget
}

// seedGraph stores a price of 1000.00 used 2.5 times, an additional cost
// of 500.00 and a planned quantity of 10, with no derived value computed
func (env *testEnv) seedGraph(t *testing.T) *costGraph {
	t.Helper()
	ctx := context.Background()
	gdb := env.db.DB
	g := &costGraph{}

	unit, err := catalog.NewUnit("Metro", "Meter", "m")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormUnitRepository(gdb).Save(ctx, unit))

	provider, err := partner.NewProvider("Textiles ABC", "", "", "", "")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormProviderRepository(gdb).Save(ctx, provider))

	input, err := catalog.NewInput("Tela denim", "", catalog.InputCategoryFabric, unit.ID)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormInputRepository(gdb).Save(ctx, input))

	price, err := catalog.NewInputProvider(input.ID, provider.ID, decimal.RequireFromString("1000.00"), true)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormInputProviderRepository(gdb).Save(ctx, price))

	g.template, err = production.NewBOMTemplate("Jean clásico", "")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormBOMTemplateRepository(gdb).Save(ctx, g.template))

	item, err := production.NewBOMItem(g.template.ID, input.ID, price.ID, decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormBOMItemRepository(gdb).Save(ctx, item))

	g.product, err = production.NewEndProduct("Jean azul", "", g.template.ID)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormEndProductRepository(gdb).Save(ctx, g.product))

	extra, err := production.NewAdditionalCost(g.product.ID, "Empaque", decimal.RequireFromString("500.00"))
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormAdditionalCostRepository(gdb).Save(ctx, extra))

	g.budget, err = production.NewProductionBudget("Temporada", "")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormBudgetRepository(gdb).Save(ctx, g.budget))

	line, err := production.NewProductionBudgetItem(g.budget.ID, g.product.ID, 10)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormBudgetItemRepository(gdb).Save(ctx, line))

	return g
}

func (env *testEnv) templateTotal(t *testing.T, g *costGraph) decimal.Decimal {
	t.Helper()
	tpl, err := persistence.NewGormBOMTemplateRepository(env.db.DB).FindByID(context.Background(), g.template.ID)
	require.NoError(t, err)
	return tpl.TotalCost
}

package costing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/textileplan/backend/internal/domain/catalog"
	"github.com/textileplan/backend/internal/domain/partner"
	"github.com/textileplan/backend/internal/domain/production"
	"github.com/textileplan/backend/internal/infrastructure/config"
	"github.com/textileplan/backend/internal/infrastructure/persistence"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testEnv is an engine over an in-memory sqlite database
type testEnv struct {
	engine *Engine
	repos  Repositories
	units  *persistence.GormUnitRepository
	parts  *persistence.GormProviderRepository
	inputs *persistence.GormInputRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	repos := Repositories{
		Prices:          persistence.NewGormInputProviderRepository(db.DB),
		Templates:       persistence.NewGormBOMTemplateRepository(db.DB),
		Items:           persistence.NewGormBOMItemRepository(db.DB),
		Products:        persistence.NewGormEndProductRepository(db.DB),
		AdditionalCosts: persistence.NewGormAdditionalCostRepository(db.DB),
		Budgets:         persistence.NewGormBudgetRepository(db.DB),
		BudgetItems:     persistence.NewGormBudgetItemRepository(db.DB),
	}
	return &testEnv{
		engine: NewEngine(repos, db.TxManager()),
		repos:  repos,
		units:  persistence.NewGormUnitRepository(db.DB),
		parts:  persistence.NewGormProviderRepository(db.DB),
		inputs: persistence.NewGormInputRepository(db.DB),
	}
}

// costGraph is one path price → line → template → product → budget line → budget
type costGraph struct {
	unit     *catalog.Unit
	provider *partner.Provider
	input    *catalog.Input
	price    *catalog.InputProvider
	template *production.BOMTemplate
	item     *production.BOMItem
	product  *production.EndProduct
	extra    *production.AdditionalCost
	budget   *production.ProductionBudget
	line     *production.ProductionBudgetItem
}

// seed stores a graph with price 1000.00, quantity 2.5, one additional
// cost of 500.00 and a planned quantity of 10. No derived value is
// computed yet.
func (env *testEnv) seed(t *testing.T) *costGraph {
	t.Helper()
	ctx := context.Background()
	g := &costGraph{}
	var err error

	g.unit, err = catalog.NewUnit("Metro", "Meter", "m")
	require.NoError(t, err)
	require.NoError(t, env.units.Save(ctx, g.unit))

	g.provider, err = partner.NewProvider("Textiles ABC", "", "", "", "")
	require.NoError(t, err)
	require.NoError(t, env.parts.Save(ctx, g.provider))

	g.input, err = catalog.NewInput("Tela denim", "", catalog.InputCategoryFabric, g.unit.ID)
	require.NoError(t, err)
	require.NoError(t, env.inputs.Save(ctx, g.input))

	g.price, err = catalog.NewInputProvider(g.input.ID, g.provider.ID, dec("1000.00"), true)
	require.NoError(t, err)
	require.NoError(t, env.repos.Prices.Save(ctx, g.price))

	g.template, err = production.NewBOMTemplate("Jean clásico", "")
	require.NoError(t, err)
	require.NoError(t, env.repos.Templates.Save(ctx, g.template))

	g.item, err = production.NewBOMItem(g.template.ID, g.input.ID, g.price.ID, dec("2.5"))
	require.NoError(t, err)
	require.NoError(t, env.repos.Items.Save(ctx, g.item))

	g.product, err = production.NewEndProduct("Jean azul", "", g.template.ID)
	require.NoError(t, err)
	require.NoError(t, env.repos.Products.Save(ctx, g.product))

	g.extra, err = production.NewAdditionalCost(g.product.ID, "Empaque", dec("500.00"))
	require.NoError(t, err)
	require.NoError(t, env.repos.AdditionalCosts.Save(ctx, g.extra))

	g.budget, err = production.NewProductionBudget("Temporada", "")
	require.NoError(t, err)
	require.NoError(t, env.repos.Budgets.Save(ctx, g.budget))

	g.line, err = production.NewProductionBudgetItem(g.budget.ID, g.product.ID, 10)
	require.NoError(t, err)
	require.NoError(t, env.repos.BudgetItems.Save(ctx, g.line))

	return g
}

// addInput stores another input priced by the graph's provider
func (env *testEnv) addInput(t *testing.T, g *costGraph, name, price string) (*catalog.Input, *catalog.InputProvider) {
	t.Helper()
	ctx := context.Background()

	input, err := catalog.NewInput(name, "", catalog.InputCategorySupply, g.unit.ID)
	require.NoError(t, err)
	require.NoError(t, env.inputs.Save(ctx, input))

	ip, err := catalog.NewInputProvider(input.ID, g.provider.ID, dec(price), false)
	require.NoError(t, err)
	require.NoError(t, env.repos.Prices.Save(ctx, ip))
	return input, ip
}

// setPrice changes a stored price without recomputing anything
func (env *testEnv) setPrice(t *testing.T, ip *catalog.InputProvider, price string) {
	t.Helper()
	require.NoError(t, ip.SetPrice(dec(price)))
	require.NoError(t, env.repos.Prices.Save(context.Background(), ip))
}

package costing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/textileplan/backend/internal/domain/catalog"
	"github.com/textileplan/backend/internal/domain/production"
	"github.com/textileplan/backend/internal/domain/shared"
	"github.com/textileplan/backend/internal/infrastructure/logger"
	"github.com/textileplan/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Repositories groups the stores the engine reads and writes
type Repositories struct {
	Prices          catalog.InputProviderRepository
	Templates       production.BOMTemplateRepository
	Items           production.BOMItemRepository
	Products        production.EndProductRepository
	AdditionalCosts production.AdditionalCostRepository
	Budgets         production.BudgetRepository
	BudgetItems     production.BudgetItemRepository
}

// Engine recomputes the derived totals of the cost graph.
//
// Each Recompute* call reads the currently stored values of its direct
// inputs, never cascades, and persists its result in its own transaction.
// Walking the graph in order is done by PropagateFrom and the Recalculate*
// runs.
type Engine struct {
	repos   Repositories
	tx      shared.TxManager
	metrics *telemetry.PlanningMetrics
}

// NewEngine creates a new Engine that counts its recomputations on the
// global meter provider
func NewEngine(repos Repositories, tx shared.TxManager) *Engine {
	return &Engine{repos: repos, tx: tx, metrics: telemetry.Metrics()}
}

// WithMetrics makes the engine count recomputations on m
func (e *Engine) WithMetrics(m *telemetry.PlanningMetrics) *Engine {
	e.metrics = m
	return e
}

type dryRunKey struct{}

// record counts the final outcome of one recomputed entity
func (e *Engine) record(ctx context.Context, kind NodeKind, err error) {
	dryRun, _ := ctx.Value(dryRunKey{}).(bool)
	e.metrics.RecordRecalculation(ctx, string(kind), dryRun, err == nil)
}

// change is the old and new stored value of one recomputed entity
type change struct {
	name string
	old  decimal.Decimal
	new  decimal.Decimal
}

type stepFunc func(ctx context.Context, id uuid.UUID, c *change) error

// RecomputeLineCost sets line_cost = price_per_unit × quantity on a BOM item
func (e *Engine) RecomputeLineCost(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	return e.recompute(ctx, Ref(KindBOMItem, itemID))
}

// RecomputeBOMTotal sets a template's total to the sum of its stored line costs
func (e *Engine) RecomputeBOMTotal(ctx context.Context, templateID uuid.UUID) (decimal.Decimal, error) {
	return e.recompute(ctx, Ref(KindBOMTemplate, templateID))
}

// RecomputeProductCost sets bom_cost from the template's stored total and
// total_cost = bom_cost + Σ additional costs
func (e *Engine) RecomputeProductCost(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	return e.recompute(ctx, Ref(KindEndProduct, productID))
}

// RecomputeBudgetItem sets unit_cost from the product's stored total and
// total_cost = unit_cost × planned_quantity
func (e *Engine) RecomputeBudgetItem(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	return e.recompute(ctx, Ref(KindBudgetItem, itemID))
}

// RecomputeBudgetTotal sets a budget's total to the sum of its stored item totals
func (e *Engine) RecomputeBudgetTotal(ctx context.Context, budgetID uuid.UUID) (decimal.Decimal, error) {
	return e.recompute(ctx, Ref(KindBudget, budgetID))
}

func (e *Engine) recompute(ctx context.Context, node NodeRef) (decimal.Decimal, error) {
	c, err := e.run(ctx, node)
	e.record(ctx, node.Kind, err)
	if err != nil {
		return decimal.Zero, err
	}
	return c.new, nil
}

func (e *Engine) stepFor(kind NodeKind) (stepFunc, error) {
	switch kind {
	case KindBOMItem:
		return e.lineCost, nil
	case KindBOMTemplate:
		return e.bomTotal, nil
	case KindEndProduct:
		return e.productCost, nil
	case KindBudgetItem:
		return e.budgetItemCost, nil
	case KindBudget:
		return e.budgetTotal, nil
	}
	return nil, shared.NewValidationError("kind", fmt.Sprintf("%s has no derived value", kind))
}

// run recomputes one node inside its own transaction. A nested call joins
// the caller's transaction as a savepoint.
func (e *Engine) run(ctx context.Context, node NodeRef) (change, error) {
	var c change
	step, err := e.stepFor(node.Kind)
	if err != nil {
		return c, err
	}

	ctx, span := telemetry.StartSpan(ctx, "costing.recompute."+string(node.Kind),
		telemetry.SpanAttrEntityKind, string(node.Kind),
		telemetry.SpanAttrEntityID, node.ID.String(),
	)
	defer span.End()

	err = e.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		return step(ctx, node.ID, &c)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return c, err
	}

	telemetry.SetAttributes(span, "old_value", c.old.String(), "new_value", c.new.String())
	logger.L(ctx).Debug("cost recomputed",
		zap.String("kind", string(node.Kind)),
		zap.String("id", node.ID.String()),
		zap.String("old", c.old.String()),
		zap.String("new", c.new.String()),
	)
	return c, nil
}

func (e *Engine) lineCost(ctx context.Context, id uuid.UUID, c *change) error {
	item, err := e.repos.Items.FindByID(ctx, id)
	if err != nil {
		return err
	}
	c.old = item.LineCost

	price, err := e.repos.Prices.FindByID(ctx, item.InputProviderID)
	if err != nil {
		return missingParent(err, KindBOMItem, item.ID, KindInputProvider, item.InputProviderID)
	}
	if c.new, err = item.ApplyLineCost(price.PricePerUnit); err != nil {
		return err
	}
	return e.repos.Items.Save(ctx, item)
}

func (e *Engine) bomTotal(ctx context.Context, id uuid.UUID, c *change) error {
	template, err := e.repos.Templates.FindByID(ctx, id)
	if err != nil {
		return err
	}
	c.name, c.old = template.Name, template.TotalCost

	items, err := e.repos.Items.FindByTemplate(ctx, id)
	if err != nil {
		return err
	}
	if c.new, err = template.ApplyTotal(items); err != nil {
		return err
	}
	return e.repos.Templates.Save(ctx, template)
}

func (e *Engine) productCost(ctx context.Context, id uuid.UUID, c *change) error {
	product, err := e.repos.Products.FindByID(ctx, id)
	if err != nil {
		return err
	}
	c.name, c.old = product.Name, product.TotalCost

	template, err := e.repos.Templates.FindByID(ctx, product.BOMTemplateID)
	if err != nil {
		return missingParent(err, KindEndProduct, product.ID, KindBOMTemplate, product.BOMTemplateID)
	}
	additional, err := e.repos.AdditionalCosts.FindByProduct(ctx, id)
	if err != nil {
		return err
	}
	if c.new, err = product.ApplyCost(template.TotalCost, additional); err != nil {
		return err
	}
	return e.repos.Products.Save(ctx, product)
}

func (e *Engine) budgetItemCost(ctx context.Context, id uuid.UUID, c *change) error {
	item, err := e.repos.BudgetItems.FindByID(ctx, id)
	if err != nil {
		return err
	}
	c.old = item.TotalCost

	product, err := e.repos.Products.FindByID(ctx, item.ProductID)
	if err != nil {
		return missingParent(err, KindBudgetItem, item.ID, KindEndProduct, item.ProductID)
	}
	c.name = product.Name
	if c.new, err = item.ApplyCost(product.TotalCost); err != nil {
		return err
	}
	return e.repos.BudgetItems.Save(ctx, item)
}

func (e *Engine) budgetTotal(ctx context.Context, id uuid.UUID, c *change) error {
	budget, err := e.repos.Budgets.FindByID(ctx, id)
	if err != nil {
		return err
	}
	c.name, c.old = budget.Name, budget.TotalBudget

	items, err := e.repos.BudgetItems.FindByBudget(ctx, id)
	if err != nil {
		return err
	}
	if c.new, err = budget.ApplyTotal(items); err != nil {
		return err
	}
	return e.repos.Budgets.Save(ctx, budget)
}

// missingParent turns a not-found lookup of a referenced parent into a
// ReferentialIntegrityError
func missingParent(err error, kind NodeKind, id uuid.UUID, parent NodeKind, parentID uuid.UUID) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewReferentialIntegrityError(string(kind), id,
			fmt.Sprintf("referenced %s %s no longer exists", parent, parentID))
	}
	return err
}

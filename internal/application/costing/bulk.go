package costing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/textileplan/backend/internal/domain/production"
	"github.com/textileplan/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
)

var errDryRun = errors.New("costing: dry run rollback")

// RecalculateTemplate recomputes every line of a template, then its total,
// atomically. Any failure leaves the whole template untouched.
func (e *Engine) RecalculateTemplate(ctx context.Context, templateID uuid.UUID) (*Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "costing.recalculate_template",
		telemetry.SpanAttrEntityID, templateID.String())
	defer span.End()

	report := &Report{}
	err := e.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := e.repos.Templates.FindByID(ctx, templateID); err != nil {
			return err
		}
		items, err := e.repos.Items.FindByTemplate(ctx, templateID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := e.mustStep(ctx, report, Ref(KindBOMItem, item.ID)); err != nil {
				return err
			}
		}
		return e.mustStep(ctx, report, Ref(KindBOMTemplate, templateID))
	})
	if err != nil {
		e.record(ctx, KindBOMTemplate, err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	e.recordReport(ctx, report)
	return report, nil
}

// RecalculateBudget recomputes every item of a budget, then its total,
// atomically
func (e *Engine) RecalculateBudget(ctx context.Context, budgetID uuid.UUID) (*Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "costing.recalculate_budget",
		telemetry.SpanAttrEntityID, budgetID.String())
	defer span.End()

	report := &Report{}
	err := e.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := e.repos.Budgets.FindByID(ctx, budgetID); err != nil {
			return err
		}
		items, err := e.repos.BudgetItems.FindByBudget(ctx, budgetID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := e.mustStep(ctx, report, Ref(KindBudgetItem, item.ID)); err != nil {
				return err
			}
		}
		return e.mustStep(ctx, report, Ref(KindBudget, budgetID))
	})
	if err != nil {
		e.record(ctx, KindBudget, err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	e.recordReport(ctx, report)
	return report, nil
}

// RecalculateTemplates runs RecalculateTemplate over every template.
// A failing template is reported and keeps its old total.
func (e *Engine) RecalculateTemplates(ctx context.Context) (*Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "costing.recalculate_templates")
	defer span.End()

	templates, err := e.repos.Templates.FindAll(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &Report{}
	for _, t := range templates {
		node := Ref(KindBOMTemplate, t.ID)
		sub, err := e.RecalculateTemplate(ctx, t.ID)
		if err != nil {
			logFailure(ctx, node, err)
			report.fail(node, change{name: t.Name, old: t.TotalCost}, err)
			continue
		}
		report.Results = append(report.Results, sub.Results...)
	}

	annotate(span, report, KindBOMTemplate)
	return report, nil
}

// RecalculateProducts recomputes every product from its template's stored
// total. Templates are not recomputed.
func (e *Engine) RecalculateProducts(ctx context.Context) (*Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "costing.recalculate_products")
	defer span.End()

	products, err := e.repos.Products.FindAll(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &Report{}
	for _, p := range products {
		e.step(ctx, report, Ref(KindEndProduct, p.ID))
	}

	annotate(span, report, KindEndProduct)
	return report, nil
}

// RecalculateBudgets runs RecalculateBudget over every budget, or over
// the budgets in the given statuses
func (e *Engine) RecalculateBudgets(ctx context.Context, statuses ...production.BudgetStatus) (*Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "costing.recalculate_budgets")
	defer span.End()

	budgets, err := e.repos.Budgets.FindAll(ctx, statuses...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &Report{}
	for _, b := range budgets {
		node := Ref(KindBudget, b.ID)
		sub, err := e.RecalculateBudget(ctx, b.ID)
		if err != nil {
			logFailure(ctx, node, err)
			report.fail(node, change{name: b.Name, old: b.TotalBudget}, err)
			continue
		}
		report.Results = append(report.Results, sub.Results...)
	}

	annotate(span, report, KindBudget)
	return report, nil
}

// RecalculateAll recomputes the whole graph bottom-up: every BOM line,
// every template, every product, every budget item, every budget. Each
// entity runs in its own transaction and failures do not stop the walk.
func (e *Engine) RecalculateAll(ctx context.Context) (*Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "costing.recalculate_all")
	defer span.End()

	nodes, err := e.allNodes(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &Report{}
	for _, node := range nodes {
		e.step(ctx, report, node)
	}

	annotate(span, report)
	return report, nil
}

// allNodes lists every derived node in walk order
func (e *Engine) allNodes(ctx context.Context) ([]NodeRef, error) {
	var nodes []NodeRef

	items, err := e.repos.Items.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		nodes = append(nodes, Ref(KindBOMItem, item.ID))
	}

	templates, err := e.repos.Templates.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		nodes = append(nodes, Ref(KindBOMTemplate, t.ID))
	}

	products, err := e.repos.Products.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		nodes = append(nodes, Ref(KindEndProduct, p.ID))
	}

	budgets, err := e.repos.Budgets.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range budgets {
		lines, err := e.repos.BudgetItems.FindByBudget(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			nodes = append(nodes, Ref(KindBudgetItem, line.ID))
		}
	}
	for _, b := range budgets {
		nodes = append(nodes, Ref(KindBudget, b.ID))
	}
	return nodes, nil
}

// DryRun runs fn inside a transaction that is always rolled back and
// returns its report marked as a dry run
func (e *Engine) DryRun(ctx context.Context, fn func(ctx context.Context) (*Report, error)) (*Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "costing.dry_run", telemetry.SpanAttrDryRun, true)
	defer span.End()
	ctx = context.WithValue(ctx, dryRunKey{}, true)

	var report *Report
	err := e.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if report, err = fn(ctx); err != nil {
			return err
		}
		return errDryRun
	})
	if err != nil && !errors.Is(err, errDryRun) {
		telemetry.RecordError(span, err)
		return nil, err
	}
	report.DryRun = true
	return report, nil
}

// PreviewTemplates reports what RecalculateTemplates would change
func (e *Engine) PreviewTemplates(ctx context.Context) (*Report, error) {
	return e.DryRun(ctx, e.RecalculateTemplates)
}

// PreviewTemplate reports what RecalculateTemplate would change
func (e *Engine) PreviewTemplate(ctx context.Context, templateID uuid.UUID) (*Report, error) {
	return e.DryRun(ctx, func(ctx context.Context) (*Report, error) {
		return e.RecalculateTemplate(ctx, templateID)
	})
}

// PreviewBudgets reports what RecalculateBudgets would change
func (e *Engine) PreviewBudgets(ctx context.Context, statuses ...production.BudgetStatus) (*Report, error) {
	return e.DryRun(ctx, func(ctx context.Context) (*Report, error) {
		return e.RecalculateBudgets(ctx, statuses...)
	})
}

// mustStep recomputes node and fails on the first error
func (e *Engine) mustStep(ctx context.Context, report *Report, node NodeRef) error {
	c, err := e.run(ctx, node)
	if err != nil {
		return err
	}
	report.succeed(node, c)
	return nil
}

// recordReport counts the results of an atomic run once it committed
func (e *Engine) recordReport(ctx context.Context, report *Report) {
	for _, res := range report.Results {
		e.record(ctx, res.Node.Kind, res.Err)
	}
}

func annotate(span trace.Span, report *Report, kinds ...NodeKind) {
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUpdated, report.Succeeded(kinds...),
		telemetry.SpanAttrFailed, report.Failed(kinds...),
	)
}

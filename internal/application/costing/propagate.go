package costing

import (
	"context"
	"fmt"
	"sort"

	"github.com/textileplan/backend/internal/domain/shared"
	"github.com/textileplan/backend/internal/infrastructure/logger"
	"github.com/textileplan/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PropagateFrom recomputes start and every value that depends on it,
// bottom-up: lines, then templates, products, budget items and budgets.
// Each node runs in its own transaction. A failing node keeps its old
// value, is reported as failed, and the walk goes on.
//
// Starting from an InputProvider recomputes the lines it prices; the price
// itself is a leaf and is not part of the report.
func (e *Engine) PropagateFrom(ctx context.Context, start NodeRef) (*Report, error) {
	if !start.Kind.IsValid() {
		return nil, shared.NewValidationError("kind", fmt.Sprintf("Unknown node kind: %s", start.Kind))
	}

	ctx, span := telemetry.StartSpan(ctx, "costing.propagate",
		telemetry.SpanAttrEntityKind, string(start.Kind),
		telemetry.SpanAttrEntityID, start.ID.String(),
	)
	defer span.End()

	if err := e.lookup(ctx, start); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	nodes, err := e.collect(ctx, start)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	sortNodes(nodes)

	report := &Report{}
	for _, node := range nodes {
		if node.Kind.derived() {
			e.step(ctx, report, node)
		}
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrUpdated, report.Succeeded(),
		telemetry.SpanAttrFailed, report.Failed(),
	)
	return report, nil
}

// step recomputes node and records the outcome on report
func (e *Engine) step(ctx context.Context, report *Report, node NodeRef) {
	c, err := e.run(ctx, node)
	e.record(ctx, node.Kind, err)
	if err != nil {
		logFailure(ctx, node, err)
		report.fail(node, c, err)
		return
	}
	report.succeed(node, c)
}

// lookup checks that a node exists
func (e *Engine) lookup(ctx context.Context, node NodeRef) error {
	var err error
	switch node.Kind {
	case KindInputProvider:
		_, err = e.repos.Prices.FindByID(ctx, node.ID)
	case KindBOMItem:
		_, err = e.repos.Items.FindByID(ctx, node.ID)
	case KindBOMTemplate:
		_, err = e.repos.Templates.FindByID(ctx, node.ID)
	case KindEndProduct:
		_, err = e.repos.Products.FindByID(ctx, node.ID)
	case KindBudgetItem:
		_, err = e.repos.BudgetItems.FindByID(ctx, node.ID)
	case KindBudget:
		_, err = e.repos.Budgets.FindByID(ctx, node.ID)
	}
	return err
}

// collect walks dependents breadth-first and returns every reached node
// once, start included
func (e *Engine) collect(ctx context.Context, start NodeRef) ([]NodeRef, error) {
	seen := map[NodeRef]bool{start: true}
	queue := []NodeRef{start}
	var out []NodeRef

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		out = append(out, node)

		next, err := e.dependents(ctx, node)
		if err != nil {
			return nil, fmt.Errorf("failed to collect dependents of %s: %w", node, err)
		}
		for _, n := range next {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return out, nil
}

// dependents returns the nodes whose value reads node's value directly
func (e *Engine) dependents(ctx context.Context, node NodeRef) ([]NodeRef, error) {
	var out []NodeRef
	switch node.Kind {
	case KindInputProvider:
		items, err := e.repos.Items.FindByInputProvider(ctx, node.ID)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			out = append(out, Ref(KindBOMItem, item.ID))
		}
	case KindBOMItem:
		item, err := e.repos.Items.FindByID(ctx, node.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Ref(KindBOMTemplate, item.TemplateID))
	case KindBOMTemplate:
		products, err := e.repos.Products.FindByTemplate(ctx, node.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			out = append(out, Ref(KindEndProduct, p.ID))
		}
	case KindEndProduct:
		items, err := e.repos.BudgetItems.FindByProduct(ctx, node.ID)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			out = append(out, Ref(KindBudgetItem, item.ID))
		}
	case KindBudgetItem:
		item, err := e.repos.BudgetItems.FindByID(ctx, node.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Ref(KindBudget, item.BudgetID))
	}
	return out, nil
}

func sortNodes(nodes []NodeRef) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].less(nodes[j])
	})
}

func logFailure(ctx context.Context, node NodeRef, err error) {
	fields := []zap.Field{
		zap.String("kind", string(node.Kind)),
		zap.String("id", node.ID.String()),
		zap.Error(err),
	}
	if shared.IsExpected(err) {
		logger.L(ctx).Warn("cost recomputation failed", fields...)
		return
	}
	logger.L(ctx).Error("cost recomputation failed", fields...)
}

package costing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/textileplan/backend/internal/domain/production"
	"github.com/textileplan/backend/internal/domain/shared"
	"github.com/textileplan/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Envelope is the uniform answer of a recalculation trigger
type Envelope struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message"`
	NewValue     *decimal.Decimal `json:"new_value,omitempty"`
	UpdatedCount *int             `json:"updated_count,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Triggers exposes the recalculation actions a caller can fire, each
// answering with an Envelope. Unexpected errors are logged here and only
// a generic message reaches the envelope.
type Triggers struct {
	engine *Engine
	now    func() time.Time
}

// NewTriggers creates the trigger surface of an engine
func NewTriggers(engine *Engine) *Triggers {
	return &Triggers{engine: engine, now: time.Now}
}

// RecalculateTemplate recomputes one template's lines and total
func (t *Triggers) RecalculateTemplate(ctx context.Context, id uuid.UUID) Envelope {
	report, err := t.engine.RecalculateTemplate(ctx, id)
	if err != nil {
		return t.failure(ctx, "recalcular costo de plantilla BOM", err)
	}
	res := last(report.Of(KindBOMTemplate))
	return t.value(fmt.Sprintf("Costo de plantilla BOM \"%s\" recalculado exitosamente.", res.Name), res.NewValue)
}

// RecalculateAllTemplates recomputes every template
func (t *Triggers) RecalculateAllTemplates(ctx context.Context) Envelope {
	report, err := t.engine.RecalculateTemplates(ctx)
	if err != nil {
		return t.failure(ctx, "recalcular todos los costos de plantillas BOM", err)
	}
	return t.count(report, KindBOMTemplate, "Costos de %d plantillas BOM recalculados exitosamente.")
}

// RecalculateProduct recomputes one product from its template's stored total
func (t *Triggers) RecalculateProduct(ctx context.Context, id uuid.UUID) Envelope {
	c, err := t.engine.run(ctx, Ref(KindEndProduct, id))
	if err != nil {
		return t.failure(ctx, "recalcular costo de producto final", err)
	}
	return t.value(fmt.Sprintf("Costo del producto \"%s\" recalculado exitosamente.", c.name), c.new)
}

// RecalculateAllProducts recomputes every product
func (t *Triggers) RecalculateAllProducts(ctx context.Context) Envelope {
	report, err := t.engine.RecalculateProducts(ctx)
	if err != nil {
		return t.failure(ctx, "recalcular todos los costos de productos finales", err)
	}
	return t.count(report, KindEndProduct, "Costos de %d productos finales recalculados exitosamente.")
}

// RecalculateBudget recomputes one budget's items and total
func (t *Triggers) RecalculateBudget(ctx context.Context, id uuid.UUID) Envelope {
	report, err := t.engine.RecalculateBudget(ctx, id)
	if err != nil {
		return t.failure(ctx, "recalcular presupuesto de producción", err)
	}
	res := last(report.Of(KindBudget))
	return t.value(fmt.Sprintf("Presupuesto \"%s\" recalculado exitosamente.", res.Name), res.NewValue)
}

// RecalculateAllBudgets recomputes every budget, or those in statuses
func (t *Triggers) RecalculateAllBudgets(ctx context.Context, statuses ...production.BudgetStatus) Envelope {
	report, err := t.engine.RecalculateBudgets(ctx, statuses...)
	if err != nil {
		return t.failure(ctx, "recalcular todos los presupuestos de producción", err)
	}
	return t.count(report, KindBudget, "Presupuestos de %d presupuestos de producción recalculados exitosamente.")
}

func (t *Triggers) value(message string, v decimal.Decimal) Envelope {
	return Envelope{
		Success:   true,
		Message:   message,
		NewValue:  &v,
		Timestamp: t.now(),
	}
}

// count builds the envelope of a bulk run. Any failed entity makes the
// envelope unsuccessful while still reporting how many were updated.
func (t *Triggers) count(report *Report, kind NodeKind, format string) Envelope {
	updated := report.Succeeded(kind)
	env := Envelope{
		Success:      true,
		Message:      fmt.Sprintf(format, updated),
		UpdatedCount: &updated,
		Timestamp:    t.now(),
	}
	if failed := report.Failed(kind); failed > 0 {
		env.Success = false
		env.Message = fmt.Sprintf("%s %d fallaron.", env.Message, failed)
	}
	return env
}

// failure builds the failure envelope, logging the original cause
func (t *Triggers) failure(ctx context.Context, action string, err error) Envelope {
	fields := []zap.Field{zap.String("action", action), zap.Error(err)}
	if shared.IsExpected(err) {
		logger.L(ctx).Warn("recalculation rejected", fields...)
	} else {
		logger.L(ctx).Error("recalculation failed", fields...)
	}
	return FailureEnvelope(fmt.Sprintf("Error al %s", action), err, t.now())
}

// FailureEnvelope builds {success:false, message, timestamp}. The message
// is prefix followed by the public part of err.
func FailureEnvelope(prefix string, err error, at time.Time) Envelope {
	return Envelope{
		Success:   false,
		Message:   fmt.Sprintf("%s: %s", prefix, shared.PublicMessage(err)),
		Timestamp: at,
	}
}

func last(results []EntityResult) EntityResult {
	if len(results) == 0 {
		return EntityResult{}
	}
	return results[len(results)-1]
}

package costing

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/textileplan/backend/internal/domain/catalog"
	"github.com/textileplan/backend/internal/domain/production"
	"github.com/textileplan/backend/internal/domain/shared"
)

// BOMItemRequest carries the editable fields of a BOM line
type BOMItemRequest struct {
	InputID         uuid.UUID       `json:"input"`
	InputProviderID uuid.UUID       `json:"input_provider"`
	Quantity        decimal.Decimal `json:"quantity"`
}

// AdditionalCostRequest is one entry of a product's additional cost list.
// A nil ID creates a new cost.
type AdditionalCostRequest struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value_cop"`
}

// Service applies BOM and product edits and recomputes the costs they touch
// in the same transaction
type Service struct {
	engine *Engine
}

// NewService creates a new Service
func NewService(engine *Engine) *Service {
	return &Service{engine: engine}
}

// AddBOMItem adds a line to a template, costs it and recomputes the
// template total
func (s *Service) AddBOMItem(ctx context.Context, templateID uuid.UUID, req BOMItemRequest) (*production.BOMItem, error) {
	var item *production.BOMItem
	err := s.engine.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.engine.repos.Templates.FindByID(ctx, templateID); err != nil {
			return err
		}
		price, err := s.priceFor(ctx, req.InputID, req.InputProviderID)
		if err != nil {
			return err
		}

		item, err = production.NewBOMItem(templateID, req.InputID, req.InputProviderID, req.Quantity)
		if err != nil {
			return err
		}
		if _, err := item.ApplyLineCost(price.PricePerUnit); err != nil {
			return err
		}
		if err := s.engine.repos.Items.Save(ctx, item); err != nil {
			return err
		}
		_, err = s.engine.run(ctx, Ref(KindBOMTemplate, templateID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateBOMItem changes a line's input, price fact and quantity, costs it
// and recomputes the template total
func (s *Service) UpdateBOMItem(ctx context.Context, itemID uuid.UUID, req BOMItemRequest) (*production.BOMItem, error) {
	var item *production.BOMItem
	err := s.engine.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if item, err = s.engine.repos.Items.FindByID(ctx, itemID); err != nil {
			return err
		}
		price, err := s.priceFor(ctx, req.InputID, req.InputProviderID)
		if err != nil {
			return err
		}

		if err := item.SetSource(req.InputID, req.InputProviderID); err != nil {
			return err
		}
		if err := item.SetQuantity(req.Quantity); err != nil {
			return err
		}
		if _, err := item.ApplyLineCost(price.PricePerUnit); err != nil {
			return err
		}
		if err := s.engine.repos.Items.Save(ctx, item); err != nil {
			return err
		}
		_, err = s.engine.run(ctx, Ref(KindBOMTemplate, item.TemplateID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteBOMItem removes a line and returns the template's new total
func (s *Service) DeleteBOMItem(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.engine.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.engine.repos.Items.FindByID(ctx, itemID)
		if err != nil {
			return err
		}
		if err := s.engine.repos.Items.Delete(ctx, itemID); err != nil {
			return err
		}
		c, err := s.engine.run(ctx, Ref(KindBOMTemplate, item.TemplateID))
		total = c.new
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// ReplaceAdditionalCosts makes costs the product's additional cost list:
// entries with a known ID are updated, entries without one are created,
// and existing costs missing from the list are deleted. Entries without a
// name or value are ignored. It returns the product's new total.
func (s *Service) ReplaceAdditionalCosts(ctx context.Context, productID uuid.UUID, costs []AdditionalCostRequest) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.engine.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.engine.repos.Products.FindByID(ctx, productID); err != nil {
			return err
		}
		existing, err := s.engine.repos.AdditionalCosts.FindByProduct(ctx, productID)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*production.AdditionalCost, len(existing))
		for i := range existing {
			byID[existing[i].ID] = &existing[i]
		}

		kept := make(map[uuid.UUID]bool)
		for _, req := range costs {
			if strings.TrimSpace(req.Name) == "" || req.Value.IsZero() {
				continue
			}
			if req.ID != uuid.Nil {
				current, ok := byID[req.ID]
				if !ok {
					continue
				}
				if err := current.Update(req.Name, req.Value); err != nil {
					return err
				}
				if err := s.engine.repos.AdditionalCosts.Save(ctx, current); err != nil {
					return err
				}
				kept[req.ID] = true
				continue
			}
			created, err := production.NewAdditionalCost(productID, req.Name, req.Value)
			if err != nil {
				return err
			}
			if err := s.engine.repos.AdditionalCosts.Save(ctx, created); err != nil {
				return err
			}
		}

		for id := range byID {
			if kept[id] {
				continue
			}
			if err := s.engine.repos.AdditionalCosts.Delete(ctx, id); err != nil {
				return err
			}
		}

		c, err := s.engine.run(ctx, Ref(KindEndProduct, productID))
		total = c.new
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// priceFor loads the price fact of a line and checks it prices the line's input
func (s *Service) priceFor(ctx context.Context, inputID, inputProviderID uuid.UUID) (*catalog.InputProvider, error) {
	price, err := s.engine.repos.Prices.FindByID(ctx, inputProviderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewValidationError("input_provider", "Input provider not found")
		}
		return nil, err
	}
	if price.InputID != inputID {
		return nil, shared.NewValidationError("input_provider", "The provider price does not belong to the selected input")
	}
	return price, nil
}

package costing

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeKind is one kind of entity in the cost dependency graph
type NodeKind string

const (
	KindInputProvider NodeKind = "input_provider"
	KindBOMItem       NodeKind = "bom_item"
	KindBOMTemplate   NodeKind = "bom_template"
	KindEndProduct    NodeKind = "end_product"
	KindBudgetItem    NodeKind = "production_budget_item"
	KindBudget        NodeKind = "production_budget"
)

// rank orders kinds bottom-up: a node is recomputed only after every node
// of a lower rank it depends on.
func (k NodeKind) rank() int {
	switch k {
	case KindInputProvider:
		return 0
	case KindBOMItem:
		return 1
	case KindBOMTemplate:
		return 2
	case KindEndProduct:
		return 3
	case KindBudgetItem:
		return 4
	case KindBudget:
		return 5
	}
	return -1
}

// IsValid checks if the kind is part of the graph
func (k NodeKind) IsValid() bool {
	return k.rank() >= 0
}

// derived reports whether the kind stores a computed value
func (k NodeKind) derived() bool {
	return k.IsValid() && k != KindInputProvider
}

// NodeRef identifies one entity of the cost graph
type NodeRef struct {
	Kind NodeKind  `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// Ref builds a NodeRef
func Ref(kind NodeKind, id uuid.UUID) NodeRef {
	return NodeRef{Kind: kind, ID: id}
}

func (n NodeRef) String() string {
	return fmt.Sprintf("%s:%s", n.Kind, n.ID)
}

// less orders refs by kind rank, then by id. UUIDv7 ids sort by creation.
func (n NodeRef) less(other NodeRef) bool {
	if n.Kind.rank() != other.Kind.rank() {
		return n.Kind.rank() < other.Kind.rank()
	}
	return n.ID.String() < other.ID.String()
}

// services/order_transitions.go
package services

import (
	"fmt"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/apperr"
)

// cascadeRule is the item floor an order target requires and the status that
// items behind the floor are moved to.
type cascadeRule struct {
	floor     entity.ItemStatus
	cascadeTo entity.ItemStatus
}

// cascadeRules is the whole cascade table. Targets missing here (Unsubmit,
// Pending, Paid, Cancelled) never move items.
var cascadeRules = map[entity.OrderStatus]cascadeRule{
	entity.OrderApproved:  {floor: entity.ItemPending, cascadeTo: entity.ItemPending},
	entity.OrderCompleted: {floor: entity.ItemReady, cascadeTo: entity.ItemReady},
	entity.OrderServed:    {floor: entity.ItemServed, cascadeTo: entity.ItemServed},
}

// Cascade is the set of items a transition moves, and where to.
type Cascade struct {
	TargetItemStatus entity.ItemStatus `json:"targetItemStatus"`
	ItemIDs          []uint            `json:"itemIds"`
}

func (c Cascade) Empty() bool { return len(c.ItemIDs) == 0 }

// Evaluation is the validator's verdict on one requested order transition.
type Evaluation struct {
	From    entity.OrderStatus `json:"from"`
	To      entity.OrderStatus `json:"to"`
	Allowed bool               `json:"allowed"`
	Cascade Cascade            `json:"cascade"`
	Reason  string             `json:"reason,omitempty"`

	// NoOp is set when the order is already at the target and nothing would change.
	NoOp bool `json:"noOp"`
}

// Err returns the TransitionError for a rejected evaluation, nil otherwise.
func (e Evaluation) Err() error {
	if e.Allowed {
		return nil
	}
	return &apperr.TransitionError{From: string(e.From), To: string(e.To), Reason: e.Reason}
}

// Evaluate decides whether o may move to target and which items must move with it.
// It reads o only.
func Evaluate(o *entity.Order, target entity.OrderStatus) Evaluation {
	ev := Evaluation{From: o.Status, To: target}
	if !target.Valid() {
		ev.Reason = "unknown order status"
		return ev
	}

	cascade := cascadeFor(o.Items, target)

	switch {
	case target == o.Status:
		// re-applying the current status only tops up items that fell behind
		ev.Allowed = true
		ev.Cascade = cascade
		ev.NoOp = cascade.Empty()
		if ev.NoOp {
			ev.Reason = fmt.Sprintf("order is already %s", target)
		}
	case o.Status.IsTerminal():
		ev.Reason = fmt.Sprintf("order is %s and accepts no further transitions", o.Status)
	case target == entity.OrderCancelled:
		ev.Allowed = true
	case target.Stage() < o.Status.Stage():
		ev.Reason = "orders only move forward"
	case target != o.Status.Next():
		ev.Reason = fmt.Sprintf("%s may only advance to %s", o.Status, o.Status.Next())
	default:
		ev.Allowed = true
		ev.Cascade = cascade
	}
	return ev
}

// cascadeFor lists the non-cancelled items strictly behind target's floor.
func cascadeFor(items []entity.OrderItem, target entity.OrderStatus) Cascade {
	rule, ok := cascadeRules[target]
	if !ok {
		return Cascade{}
	}
	c := Cascade{TargetItemStatus: rule.cascadeTo}
	for _, it := range items {
		if it.Status == entity.ItemCancelled {
			continue
		}
		if it.Status.Rank() < rule.floor.Rank() {
			c.ItemIDs = append(c.ItemIDs, it.ID)
		}
	}
	return c
}

// ItemEvaluation is the verdict on a single item move.
type ItemEvaluation struct {
	From    entity.ItemStatus
	To      entity.ItemStatus
	Allowed bool
	NoOp    bool
	Reason  string
}

func (e ItemEvaluation) Err() error {
	if e.Allowed {
		return nil
	}
	return &apperr.TransitionError{From: string(e.From), To: string(e.To), Reason: e.Reason}
}

// EvaluateItem checks a manual move of one item. Items move forward, possibly
// skipping kitchen stages, or to Cancelled from any non-terminal status.
func EvaluateItem(o *entity.Order, it *entity.OrderItem, target entity.ItemStatus) ItemEvaluation {
	ev := ItemEvaluation{From: it.Status, To: target}
	switch {
	case target == entity.ItemUnconfirmed || !target.Valid():
		ev.Reason = "unknown item status"
	case o.Status.IsTerminal():
		ev.Reason = fmt.Sprintf("order is %s", o.Status)
	case it.Status == target:
		ev.Allowed, ev.NoOp = true, true
	case it.Status.IsTerminal():
		ev.Reason = fmt.Sprintf("item is %s", it.Status)
	case target == entity.ItemCancelled:
		ev.Allowed = true
	case target.Rank() < it.Status.Rank():
		ev.Reason = "items only move forward"
	case o.Status == entity.OrderUnsubmit:
		ev.Reason = "order has not been approved yet"
	default:
		ev.Allowed = true
	}
	return ev
}

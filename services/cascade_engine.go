package services

import (
	"context"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/metrics"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/repository"
)

// CascadeEngine writes an order transition and its item cascade as one unit.
type CascadeEngine struct {
	Repo *repository.OrderRepository
	Now  func() time.Time
}

func NewCascadeEngine(repo *repository.OrderRepository) *CascadeEngine {
	return &CascadeEngine{Repo: repo, Now: time.Now}
}

// Apply moves snapshot to target together with cascade. snapshot must be the
// state the cascade was evaluated against; if the stored order has moved on
// since, nothing is written and apperr.ErrConflictRetry is returned.
//
// When snapshot is already at target and the cascade is empty Apply writes
// nothing and returns snapshot.
func (e *CascadeEngine) Apply(ctx context.Context, snapshot *entity.Order, target entity.OrderStatus, cascade Cascade) (*entity.Order, error) {
	if snapshot.Status == target && cascade.Empty() {
		return snapshot, nil
	}

	w := repository.StatusWrite{
		OrderID:         snapshot.ID,
		ExpectedVersion: snapshot.Version,
		OrderStatus:     target,
		ItemIDs:         cascade.ItemIDs,
		ItemStatus:      cascade.TargetItemStatus,
	}
	if target == entity.OrderCompleted && snapshot.CompletedAt == nil {
		now := e.Now()
		w.CompletedAt = &now
	}
	if err := e.Repo.WriteStatus(ctx, w); err != nil {
		return nil, err
	}
	if !cascade.Empty() {
		metrics.CascadeItems.WithLabelValues(string(cascade.TargetItemStatus)).Add(float64(len(cascade.ItemIDs)))
	}
	return e.Repo.GetOrder(ctx, snapshot.RestaurantID, snapshot.ID)
}

// MoveItem writes a single item status under the order's version guard.
func (e *CascadeEngine) MoveItem(ctx context.Context, snapshot *entity.Order, itemID uint, target entity.ItemStatus) (*entity.Order, error) {
	w := repository.StatusWrite{
		OrderID:         snapshot.ID,
		ExpectedVersion: snapshot.Version,
		OrderStatus:     snapshot.Status,
		ItemIDs:         []uint{itemID},
		ItemStatus:      target,
	}
	if err := e.Repo.WriteStatus(ctx, w); err != nil {
		return nil, err
	}
	return e.Repo.GetOrder(ctx, snapshot.RestaurantID, snapshot.ID)
}

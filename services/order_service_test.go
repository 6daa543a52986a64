package services

import (
	"context"
	"testing"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/apperr"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, retries int) (*OrderService, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	svc := NewOrderService(newTestRepo(t), newFakeCatalog(), pub, OrderConfig{
		DefaultPrepTimeMinutes: 15,
		ConflictRetries:        retries,
	})
	return svc, pub
}

func createOrder(t *testing.T, svc *OrderService) *entity.Order {
	t.Helper()
	o, err := svc.Create(context.Background(), testRestaurant, &CreateOrderReq{
		TableID: 3,
		Items: []OrderItemIn{
			{DishID: 1, Quantity: 2, OptionIDs: []uint{7}},
			{DishID: 2, Quantity: 1, Note: "no chili"},
		},
	})
	require.NoError(t, err)
	return o
}

func TestOrderService_Create(t *testing.T) {
	svc, pub := newTestService(t, 3)
	o := createOrder(t, svc)

	assert.Equal(t, entity.OrderUnsubmit, o.Status)
	assert.Equal(t, int64(1), o.Version)
	assert.Equal(t, 20, o.PrepTimeMinutes, "longest dish wins")
	require.Len(t, o.Items, 2)
	assert.Equal(t, []entity.ItemStatus{entity.ItemUnconfirmed, entity.ItemUnconfirmed}, itemStatuses(o))
	assert.Equal(t, "Pho", o.Items[0].DishName)
	require.Len(t, o.Items[0].Modifiers, 1)
	assert.Equal(t, "Extra beef", o.Items[0].Modifiers[0].OptionName)
	assert.Equal(t, int64((50000+15000)*2+45000), o.TotalAmount)

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, entity.OrderCreated, events[0].Type)
	assert.Equal(t, o.ID, events[0].OrderID)
	assert.Equal(t, testRestaurant, events[0].TenantID)
}

func TestOrderService_CreateDefaultsPrepTime(t *testing.T) {
	svc, _ := newTestService(t, 3)
	o, err := svc.Create(context.Background(), testRestaurant, &CreateOrderReq{
		TableID: 3,
		Items:   []OrderItemIn{{DishID: 4, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 15, o.PrepTimeMinutes)
}

func TestOrderService_CreateRejectsBadInput(t *testing.T) {
	svc, pub := newTestService(t, 3)
	ctx := context.Background()

	cases := map[string]*CreateOrderReq{
		"unknown table":    {TableID: 99, Items: []OrderItemIn{{DishID: 1, Quantity: 1}}},
		"unknown dish":     {TableID: 3, Items: []OrderItemIn{{DishID: 42, Quantity: 1}}},
		"unavailable dish": {TableID: 3, Items: []OrderItemIn{{DishID: 3, Quantity: 1}}},
		"unknown option":   {TableID: 3, Items: []OrderItemIn{{DishID: 1, Quantity: 1, OptionIDs: []uint{8}}}},
		"zero quantity":    {TableID: 3, Items: []OrderItemIn{{DishID: 1, Quantity: 0}}},
		"no items":         {TableID: 3},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, testRestaurant, req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
	assert.Empty(t, pub.all())
}

func TestOrderService_ChangeStatusNeedsConfirmation(t *testing.T) {
	svc, pub := newTestService(t, 3)
	ctx := context.Background()
	o := createOrder(t, svc)

	_, err := svc.ChangeStatus(ctx, testRestaurant, o.ID, entity.OrderApproved, Confirmation{})
	var ce *apperr.ConfirmationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Pending", ce.TargetItemStatus)
	assert.Equal(t, []uint{o.Items[0].ID, o.Items[1].ID}, ce.ItemIDs)

	unchanged, err := svc.Get(ctx, testRestaurant, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderUnsubmit, unchanged.Status)

	got, err := svc.ChangeStatus(ctx, testRestaurant, o.ID, entity.OrderApproved, Confirmation{Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderApproved, got.Status)
	assert.Equal(t, []entity.ItemStatus{entity.ItemPending, entity.ItemPending}, itemStatuses(got))

	events := pub.all()
	require.Len(t, events, 2)
	assert.Equal(t, entity.OrderUpdated, events[1].Type)
	assert.Equal(t, entity.EventHint{Version: 2, Status: entity.OrderApproved}, events[1].Hint)
}

func TestOrderService_ConfirmedItemsMustCoverCascade(t *testing.T) {
	svc, _ := newTestService(t, 3)
	o := createOrder(t, svc)

	_, err := svc.ChangeStatus(context.Background(), testRestaurant, o.ID, entity.OrderApproved,
		Confirmation{Confirmed: true, ItemIDs: []uint{o.Items[0].ID}})
	assert.ErrorIs(t, err, apperr.ErrConfirmationRequired)
}

func TestOrderService_PassThroughAndNoOp(t *testing.T) {
	svc, pub := newTestService(t, 3)
	ctx := context.Background()
	o := createOrder(t, svc)

	_, err := svc.ChangeStatus(ctx, testRestaurant, o.ID, entity.OrderApproved, Confirmation{Confirmed: true})
	require.NoError(t, err)
	got, err := svc.ChangeStatus(ctx, testRestaurant, o.ID, entity.OrderPending, Confirmation{})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPending, got.Status)
	assert.Equal(t, int64(3), got.Version)

	again, err := svc.ChangeStatus(ctx, testRestaurant, o.ID, entity.OrderPending, Confirmation{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), again.Version)
	assert.Len(t, pub.all(), 3, "no event for a no-op")
}

func TestOrderService_BackwardRejected(t *testing.T) {
	svc, _ := newTestService(t, 3)
	seeded := seedOrder(t, svc.Repo, entity.OrderServed, entity.ItemServed)

	_, err := svc.ChangeStatus(context.Background(), testRestaurant, seeded.ID, entity.OrderPending, Confirmation{Confirmed: true})
	var te *apperr.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "orders only move forward", te.Reason)
}

func TestOrderService_NotFoundAcrossTenants(t *testing.T) {
	svc, _ := newTestService(t, 3)
	o := createOrder(t, svc)

	_, err := svc.Get(context.Background(), 2, o.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.ChangeStatus(context.Background(), 2, o.ID, entity.OrderCancelled, Confirmation{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// interfere bumps an order's version from inside the next n guarded order
// updates, so they lose the compare-and-swap exactly as against a concurrent writer.
func interfere(t *testing.T, repo *repository.OrderRepository, n int) *int {
	t.Helper()
	calls := 0
	err := repo.DB.Callback().Update().Before("gorm:update").Register("test:interfere", func(tx *gorm.DB) {
		if tx.Statement.Schema == nil || tx.Statement.Schema.Table != "orders" {
			return
		}
		calls++
		if calls > n {
			return
		}
		tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE orders SET version = version + 1")
	})
	require.NoError(t, err)
	return &calls
}

func TestOrderService_RetriesAfterConflict(t *testing.T) {
	svc, _ := newTestService(t, 1)
	ctx := context.Background()
	o := createOrder(t, svc)
	calls := interfere(t, svc.Repo, 1)

	got, err := svc.ChangeStatus(ctx, testRestaurant, o.ID, entity.OrderCancelled, Confirmation{})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderCancelled, got.Status)
	assert.Equal(t, 2, *calls)
}

func TestOrderService_GivesUpAfterRetries(t *testing.T) {
	svc, _ := newTestService(t, 2)
	ctx := context.Background()
	o := createOrder(t, svc)
	calls := interfere(t, svc.Repo, 100)

	_, err := svc.ChangeStatus(ctx, testRestaurant, o.ID, entity.OrderCancelled, Confirmation{})
	assert.ErrorIs(t, err, apperr.ErrConflictRetry)
	assert.Equal(t, 3, *calls)

	got, err := svc.Get(ctx, testRestaurant, o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderUnsubmit, got.Status)
}

func TestOrderService_ChangeItemStatus(t *testing.T) {
	svc, pub := newTestService(t, 3)
	ctx := context.Background()
	o := createOrder(t, svc)

	_, err := svc.ChangeItemStatus(ctx, testRestaurant, o.ID, o.Items[0].ID, entity.ItemPreparing)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "order not approved")

	_, err = svc.ChangeStatus(ctx, testRestaurant, o.ID, entity.OrderApproved, Confirmation{Confirmed: true})
	require.NoError(t, err)

	got, err := svc.ChangeItemStatus(ctx, testRestaurant, o.ID, o.Items[0].ID, entity.ItemPreparing)
	require.NoError(t, err)
	assert.Equal(t, entity.ItemPreparing, got.Items[0].Status)

	got, err = svc.ChangeItemStatus(ctx, testRestaurant, o.ID, o.Items[1].ID, entity.ItemCancelled)
	require.NoError(t, err)
	assert.Equal(t, entity.ItemCancelled, got.Items[1].Status)
	assert.Equal(t, int64((50000+15000)*2), got.TotalAmount, "cancelled lines do not count")

	_, err = svc.ChangeItemStatus(ctx, testRestaurant, o.ID, 9999, entity.ItemReady)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	events := pub.all()
	assert.Equal(t, entity.OrderItemUpdated, events[len(events)-1].Type)
}

func TestOrderService_AddItems(t *testing.T) {
	svc, _ := newTestService(t, 3)
	ctx := context.Background()
	o := createOrder(t, svc)
	_, err := svc.ChangeStatus(ctx, testRestaurant, o.ID, entity.OrderApproved, Confirmation{Confirmed: true})
	require.NoError(t, err)

	got, err := svc.AddItems(ctx, testRestaurant, o.ID, &AddItemsReq{Items: []OrderItemIn{{DishID: 4, Quantity: 3}}})
	require.NoError(t, err)
	require.Len(t, got.Items, 3)
	assert.Equal(t, entity.ItemUnconfirmed, got.Items[2].Status)
	assert.Equal(t, 20, got.PrepTimeMinutes, "budget never shrinks")

	// the new line rides along with the next cascade
	ev := Evaluate(got, entity.OrderPending)
	assert.True(t, ev.Cascade.Empty())
	_, err = svc.ChangeStatus(ctx, testRestaurant, o.ID, entity.OrderPending, Confirmation{})
	require.NoError(t, err)
	done, err := svc.ChangeStatus(ctx, testRestaurant, o.ID, entity.OrderCompleted, Confirmation{Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, []entity.ItemStatus{entity.ItemReady, entity.ItemReady, entity.ItemReady}, itemStatuses(done))

	_, err = svc.AddItems(ctx, testRestaurant, o.ID, &AddItemsReq{Items: []OrderItemIn{{DishID: 4, Quantity: 1}}})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestOrderService_PreviewDoesNotWrite(t *testing.T) {
	svc, _ := newTestService(t, 3)
	ctx := context.Background()
	o := createOrder(t, svc)

	ev, err := svc.Preview(ctx, testRestaurant, o.ID, entity.OrderApproved)
	require.NoError(t, err)
	assert.True(t, ev.Allowed)
	assert.Len(t, ev.Cascade.ItemIDs, 2)

	got, err := svc.Get(ctx, testRestaurant, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}

func TestOrderService_ListAndDelete(t *testing.T) {
	svc, pub := newTestService(t, 3)
	ctx := context.Background()
	a := createOrder(t, svc)
	b := createOrder(t, svc)
	_, err := svc.ChangeStatus(ctx, testRestaurant, b.ID, entity.OrderCancelled, Confirmation{})
	require.NoError(t, err)

	out, err := svc.List(ctx, testRestaurant, repository.OrderFilter{Status: entity.OrderUnsubmit})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	require.Len(t, out.Items, 1)
	assert.Equal(t, a.ID, out.Items[0].ID)
	assert.Equal(t, 1, out.PageNumber)
	assert.Equal(t, 20, out.PageSize)

	require.NoError(t, svc.Delete(ctx, testRestaurant, a.ID))
	_, err = svc.Get(ctx, testRestaurant, a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, testRestaurant, a.ID), apperr.ErrNotFound)

	events := pub.all()
	assert.Equal(t, entity.OrderDeleted, events[len(events)-1].Type)
}

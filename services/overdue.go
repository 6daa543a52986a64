package services

import (
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
)

// OverdueBy is how far past its preparation budget an order is at now. Orders
// the kitchen has finished with (Completed and later, or Cancelled) are never
// overdue.
func OverdueBy(o *entity.Order, now time.Time) time.Duration {
	if !o.Status.IsActiveWait() {
		return 0
	}
	budget := time.Duration(o.PrepTimeMinutes) * time.Minute
	elapsed := now.Sub(o.CreatedAt)
	if elapsed <= budget {
		return 0
	}
	return elapsed - budget
}

// IsOverdue reports whether elapsed minutes strictly exceed prepTimeMinutes.
func IsOverdue(o *entity.Order, now time.Time) bool {
	return OverdueBy(o, now) > 0
}

// decorate fills the read-only fields of an order snapshot.
func decorate(o *entity.Order, now time.Time) *entity.Order {
	o.Recalculate()
	late := OverdueBy(o, now)
	o.Overdue = late > 0
	o.OverdueMinutes = int(late / time.Minute)
	return o
}

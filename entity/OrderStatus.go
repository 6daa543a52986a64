package entity

// OrderStatus is the stage of an order in the front-of-house workflow.
type OrderStatus string

const (
	OrderUnsubmit  OrderStatus = "Unsubmit"
	OrderApproved  OrderStatus = "Approved"
	OrderPending   OrderStatus = "Pending"
	OrderCompleted OrderStatus = "Completed"
	OrderServed    OrderStatus = "Served"
	OrderPaid      OrderStatus = "Paid"
	OrderCancelled OrderStatus = "Cancelled"
)

// orderStages is the forward sequence. Cancelled sits outside it.
var orderStages = []OrderStatus{
	OrderUnsubmit, OrderApproved, OrderPending, OrderCompleted, OrderServed, OrderPaid,
}

// ParseOrderStatus accepts the exact status names only.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	if st == OrderCancelled || st.Stage() >= 0 {
		return st, true
	}
	return "", false
}

// Stage is the position in the forward sequence, -1 for Cancelled or unknown.
func (s OrderStatus) Stage() int {
	for i, st := range orderStages {
		if st == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool {
	_, ok := ParseOrderStatus(string(s))
	return ok
}

// Next returns the stage after s, or "" when s is terminal or unknown.
func (s OrderStatus) Next() OrderStatus {
	i := s.Stage()
	if i < 0 || i+1 >= len(orderStages) {
		return ""
	}
	return orderStages[i+1]
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderPaid || s == OrderCancelled
}

// IsActiveWait reports whether the kitchen has not yet finished the order.
// Only these statuses can be overdue or take new items.
func (s OrderStatus) IsActiveWait() bool {
	return s == OrderUnsubmit || s == OrderApproved || s == OrderPending
}

// ActiveWaitStatuses lists the statuses for which IsActiveWait is true.
func ActiveWaitStatuses() []OrderStatus {
	return []OrderStatus{OrderUnsubmit, OrderApproved, OrderPending}
}

package services

import (
	"context"
	"strconv"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/metrics"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/repository"

	log "github.com/sirupsen/logrus"
)

// OverdueMonitor periodically counts overdue orders per restaurant for the
// orders_overdue gauge and logs each order the first time it is seen overdue.
type OverdueMonitor struct {
	Repo     *repository.OrderRepository
	Interval time.Duration
	Now      func() time.Time

	seen map[uint]bool
	// restaurants reported at the previous scan, so their gauge can be zeroed
	reported map[uint]bool
}

const defaultScanInterval = 30 * time.Second

func NewOverdueMonitor(repo *repository.OrderRepository, interval time.Duration) *OverdueMonitor {
	if interval <= 0 {
		interval = defaultScanInterval
	}
	return &OverdueMonitor{
		Repo:     repo,
		Interval: interval,
		Now:      time.Now,
		seen:     map[uint]bool{},
		reported: map[uint]bool{},
	}
}

// Run scans until ctx is done.
func (m *OverdueMonitor) Run(ctx context.Context) error {
	interval := m.Interval
	if interval <= 0 {
		interval = defaultScanInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := m.Scan(ctx); err != nil {
			log.WithError(err).Error("overdue scan failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Scan runs one pass and returns the overdue count per restaurant.
func (m *OverdueMonitor) Scan(ctx context.Context) (map[uint]int, error) {
	orders, err := m.Repo.ListActiveOrders(ctx)
	if err != nil {
		return nil, err
	}
	now := m.Now()
	counts := map[uint]int{}
	current := map[uint]bool{}
	for i := range orders {
		o := &orders[i]
		if !IsOverdue(o, now) {
			continue
		}
		counts[o.RestaurantID]++
		current[o.ID] = true
		if !m.seen[o.ID] {
			log.WithFields(log.Fields{
				"order_id":      o.ID,
				"restaurant_id": o.RestaurantID,
				"table_id":      o.TableID,
				"status":        o.Status,
				"overdue_by":    OverdueBy(o, now).Round(time.Second).String(),
			}).Warn("order overdue")
		}
	}
	m.seen = current

	for rid := range m.reported {
		if _, ok := counts[rid]; !ok {
			metrics.OverdueOrders.WithLabelValues(strconv.FormatUint(uint64(rid), 10)).Set(0)
		}
	}
	m.reported = map[uint]bool{}
	for rid, n := range counts {
		metrics.OverdueOrders.WithLabelValues(strconv.FormatUint(uint64(rid), 10)).Set(float64(n))
		m.reported[rid] = true
	}
	return counts, nil
}

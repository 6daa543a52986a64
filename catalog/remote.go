// Package catalog reads reference data (tables, dishes, modifier options) from
// the menu service over HTTP, behind a circuit breaker.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/apperr"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/metrics"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const DefaultTimeout = 3 * time.Second

// envelope matches the {ok, data, error} body the menu service answers with.
type envelope[T any] struct {
	OK    bool   `json:"ok"`
	Data  T      `json:"data"`
	Error string `json:"error"`
}

type Remote struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func NewRemote(baseURL string) *Remote {
	return &Remote{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(DefaultTimeout).
			SetRetryCount(0),
		breaker: newBreaker("catalog"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(cbName string, from, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(state)
			log.WithFields(log.Fields{
				"circuit": cbName,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("circuit breaker state changed")
		},
	})
}

func (r *Remote) Table(ctx context.Context, restaurantID, tableID uint) (*entity.Table, error) {
	return fetch[entity.Table](ctx, r, fmt.Sprintf("/restaurants/%d/tables/%d", restaurantID, tableID))
}

func (r *Remote) Dish(ctx context.Context, restaurantID, dishID uint) (*entity.Dish, error) {
	return fetch[entity.Dish](ctx, r, fmt.Sprintf("/restaurants/%d/dishes/%d", restaurantID, dishID))
}

func (r *Remote) ModifierOption(ctx context.Context, restaurantID, optionID uint) (*entity.ModifierOption, error) {
	return fetch[entity.ModifierOption](ctx, r, fmt.Sprintf("/restaurants/%d/modifier-options/%d", restaurantID, optionID))
}

// fetch GETs path. A 404 is a normal answer and does not count against the
// breaker; transport errors and 5xx do.
func fetch[T any](ctx context.Context, r *Remote, path string) (*T, error) {
	res, err := r.breaker.Execute(func() (interface{}, error) {
		var body envelope[T]
		resp, err := r.client.R().SetContext(ctx).SetResult(&body).Get(path)
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode() == http.StatusNotFound:
			return nil, nil
		case resp.IsError():
			return nil, fmt.Errorf("catalog %s: status %d", path, resp.StatusCode())
		}
		return &body.Data, nil
	})
	if err != nil {
		return nil, apperr.Storage("catalog lookup", err)
	}
	if res == nil {
		return nil, apperr.ErrNotFound
	}
	return res.(*T), nil
}

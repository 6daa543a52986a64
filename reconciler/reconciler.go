// Package reconciler is the client side of the order stream. It keeps a local
// cache of orders that is always subordinate to server reads: every push event
// is treated as "order X changed" and answered with a fresh GET of X.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var ErrGone = errors.New("order no longer exists")

type envelope[T any] struct {
	OK    bool   `json:"ok"`
	Data  T      `json:"data"`
	Error string `json:"error"`
}

type orderPage struct {
	Items      []entity.Order `json:"items"`
	Total      int64          `json:"total"`
	PageNumber int            `json:"pageNumber"`
	PageSize   int            `json:"pageSize"`
}

type Reconciler struct {
	baseURL string
	token   string
	api     *resty.Client
	dialer  *websocket.Dialer

	// OnChange is called after the cache changes; deleted reports removal.
	OnChange func(o entity.Order, deleted bool)

	ReconnectDelay time.Duration

	mu     sync.RWMutex
	orders map[uint]entity.Order
}

func New(baseURL, token string) *Reconciler {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Reconciler{
		baseURL: baseURL,
		token:   token,
		api: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(token).
			SetTimeout(5 * time.Second),
		dialer:         websocket.DefaultDialer,
		ReconnectDelay: 2 * time.Second,
		orders:         make(map[uint]entity.Order),
	}
}

// Order returns the cached snapshot of an order.
func (r *Reconciler) Order(id uint) (entity.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	return o, ok
}

// Orders returns the cache sorted by id.
func (r *Reconciler) Orders() []entity.Order {
	r.mu.RLock()
	out := make([]entity.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resync replaces the cache with a full listing. It runs on every (re)connect
// because events published while disconnected are never replayed. Pages are
// walked by id cursor so deletes during the walk cannot shift orders past it.
func (r *Reconciler) Resync(ctx context.Context) error {
	fresh := make(map[uint]entity.Order)
	var before uint
	for {
		params := map[string]string{"pageSize": "200"}
		if before != 0 {
			params["beforeId"] = fmt.Sprint(before)
		}
		var body envelope[orderPage]
		res, err := r.api.R().SetContext(ctx).
			SetQueryParams(params).
			SetResult(&body).
			Get("/orders")
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		if res.IsError() {
			return fmt.Errorf("list orders: status %d", res.StatusCode())
		}
		for _, o := range body.Data.Items {
			fresh[o.ID] = o
		}
		if len(body.Data.Items) < body.Data.PageSize || len(body.Data.Items) == 0 {
			break
		}
		before = body.Data.Items[len(body.Data.Items)-1].ID
	}

	r.mu.Lock()
	r.orders = fresh
	r.mu.Unlock()
	return nil
}

// Fetch reads the canonical order from the server.
func (r *Reconciler) Fetch(ctx context.Context, id uint) (*entity.Order, error) {
	var body envelope[entity.Order]
	res, err := r.api.R().SetContext(ctx).SetResult(&body).Get(fmt.Sprintf("/orders/%d", id))
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, ErrGone
	}
	if res.IsError() {
		return nil, fmt.Errorf("get order %d: status %d", id, res.StatusCode())
	}
	return &body.Data, nil
}

// HandleEvent refetches the order named by evt. Nothing else in the event is
// trusted: duplicates, reordering and missed events all converge because the
// cache only ever takes the server's current answer, and never steps back to
// an older version.
func (r *Reconciler) HandleEvent(ctx context.Context, evt entity.OrderEvent) error {
	o, err := r.Fetch(ctx, evt.OrderID)
	if errors.Is(err, ErrGone) {
		r.mu.Lock()
		old, had := r.orders[evt.OrderID]
		delete(r.orders, evt.OrderID)
		r.mu.Unlock()
		if had && r.OnChange != nil {
			r.OnChange(old, true)
		}
		return nil
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	cur, had := r.orders[o.ID]
	changed := !had || o.Version > cur.Version
	if changed {
		r.orders[o.ID] = *o
	}
	r.mu.Unlock()
	if changed && r.OnChange != nil {
		r.OnChange(*o, false)
	}
	return nil
}

// Run subscribes to the order stream and reconciles until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	for {
		err := r.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.WithError(err).Warn("order stream lost, reconnecting")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.ReconnectDelay):
		}
	}
}

func (r *Reconciler) session(ctx context.Context) error {
	conn, _, err := r.dialer.DialContext(ctx, r.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("dial order stream: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := r.Resync(ctx); err != nil {
		return err
	}
	for {
		var evt entity.OrderEvent
		if err := conn.ReadJSON(&evt); err != nil {
			return fmt.Errorf("read order stream: %w", err)
		}
		if err := r.HandleEvent(ctx, evt); err != nil {
			// the next event for this order, or the resync after a reconnect, repairs it
			log.WithError(err).WithField("order_id", evt.OrderID).Warn("refetch failed")
		}
	}
}

func (r *Reconciler) streamURL() string {
	u, _ := url.Parse(r.baseURL)
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/orders"
	u.RawQuery = url.Values{"token": {r.token}}.Encode()
	return u.String()
}

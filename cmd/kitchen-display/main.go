// Command kitchen-display follows a restaurant's order stream and prints the
// kitchen's view of every order as it changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/reconciler"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

type pinLogin struct {
	OK    bool   `json:"ok"`
	Token string `json:"token"`
	Error string `json:"error"`
}

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:8000", "order service base URL")
		token        = flag.String("token", os.Getenv("KITCHEN_TOKEN"), "bearer token; overrides PIN login")
		restaurantID = flag.Uint("restaurant", 1, "restaurant id for PIN login")
		staffID      = flag.Uint("staff", 0, "staff id for PIN login")
		pin          = flag.String("pin", os.Getenv("KITCHEN_PIN"), "staff PIN")
		verbose      = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *token == "" {
		t, err := login(ctx, *baseURL, *restaurantID, *staffID, *pin)
		if err != nil {
			log.WithError(err).Fatal("login failed")
		}
		*token = t
	}

	r := reconciler.New(*baseURL, *token)
	r.OnChange = func(o entity.Order, deleted bool) {
		if deleted {
			fmt.Printf("order #%d removed\n", o.ID)
			return
		}
		fmt.Println(render(o))
	}

	log.WithField("url", *baseURL).Info("following order stream")
	if err := r.Run(ctx); err != nil {
		log.WithError(err).Fatal("stream stopped")
	}
}

func login(ctx context.Context, baseURL string, restaurantID, staffID uint, pin string) (string, error) {
	if staffID == 0 || pin == "" {
		return "", fmt.Errorf("either -token or -staff and -pin are required")
	}
	var out pinLogin
	res, err := resty.New().SetTimeout(5*time.Second).R().
		SetContext(ctx).
		SetBody(map[string]any{"restaurantId": restaurantID, "staffId": staffID, "pin": pin}).
		SetResult(&out).
		SetError(&out).
		Post(strings.TrimRight(baseURL, "/") + "/auth/pin")
	if err != nil {
		return "", err
	}
	if res.IsError() || out.Token == "" {
		return "", fmt.Errorf("status %d: %s", res.StatusCode(), out.Error)
	}
	return out.Token, nil
}

func render(o entity.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "order #%d table %d  %s  v%d", o.ID, o.TableID, o.Status, o.Version)
	if o.Overdue {
		fmt.Fprintf(&b, "  OVERDUE %d min", o.OverdueMinutes)
	}
	for _, it := range o.Items {
		st := string(it.Status)
		if it.Status == entity.ItemUnconfirmed {
			st = "-"
		}
		fmt.Fprintf(&b, "\n  %-10s %2dx %s", st, it.Quantity, it.DishName)
		if it.Note != "" {
			fmt.Fprintf(&b, " (%s)", it.Note)
		}
	}
	return b.String()
}

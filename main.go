package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/broker"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/catalog"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/configs"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/controllers"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/idempotency"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/repository"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/routes"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/services"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/ws"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	cfg := configs.LoadConfig()

	// DB
	if err := configs.ConnectionDB(cfg); err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	db := configs.DB()

	// migrate
	if err := configs.SetupDatabase(db); err != nil {
		log.WithError(err).Fatal("migrate failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orderRepo := repository.NewOrderRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	var cat services.Catalog = repository.NewCatalogRepository(db)
	if cfg.CatalogURL != "" {
		cat = catalog.NewRemote(cfg.CatalogURL)
		log.WithField("url", cfg.CatalogURL).Info("using remote catalog")
	}
	authSvc := services.NewAuthService(staffRepo, cat, cfg.JWTSecret, cfg.JWTTTL)

	if err := configs.SeedCatalog(db); err != nil {
		log.WithError(err).Fatal("seed catalog failed")
	}
	if err := configs.SeedStaff(ctx, db, authSvc); err != nil {
		log.WithError(err).Fatal("seed staff failed")
	}

	hub := ws.NewOrderHub(cfg.WSSendBuffer)
	var relay *broker.Relay
	if cfg.RabbitMQURL != "" {
		relay = broker.NewRelay(cfg.RabbitMQURL, hub.Origin, hub)
		hub.AddForwarder(relay)
	}

	orderSvc := services.NewOrderService(orderRepo, cat, hub, services.OrderConfig{
		DefaultPrepTimeMinutes: cfg.DefaultPrepTimeMinutes,
		ConflictRetries:        cfg.ConflictRetries,
	})
	monitor := services.NewOverdueMonitor(orderRepo, cfg.OverdueScanInterval)

	// HTTP
	r := gin.Default()
	routes.RegisterRoutes(r, routes.Deps{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Auth:        controllers.NewAuthController(authSvc),
		Orders:      controllers.NewOrderController(orderSvc, idempotency.New(cfg.IdempotencyTTL)),
		Hub:         hub,
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return monitor.Run(gctx) })
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("server stopped")
}

package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/uicestone/minimars-server-sub000/internal/config"
	"github.com/uicestone/minimars-server-sub000/internal/database"
	"github.com/uicestone/minimars-server-sub000/internal/domain/booking"
	"github.com/uicestone/minimars-server-sub000/internal/domain/card"
	"github.com/uicestone/minimars-server-sub000/internal/domain/events"
	"github.com/uicestone/minimars-server-sub000/internal/domain/loyalty"
	"github.com/uicestone/minimars-server-sub000/internal/domain/notification"
	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
	"github.com/uicestone/minimars-server-sub000/internal/domain/settlement"
	"github.com/uicestone/minimars-server-sub000/internal/domain/staff"
	"github.com/uicestone/minimars-server-sub000/internal/infra/broker"
	"github.com/uicestone/minimars-server-sub000/internal/infra/gateway"
	"github.com/uicestone/minimars-server-sub000/internal/infra/lock"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/jwt"
)

// App holds the wired services shared by the api and sweeper processes.
type App struct {
	Config *config.Config
	Log    zerolog.Logger
	DB     *gorm.DB

	JWT       *jwt.Service
	Bus       *events.Bus
	Venue     *config.VenueStore
	Providers payment.Providers

	Bookings      *booking.Service
	Cards         *card.Service
	Settlement    *settlement.Router
	Staff         *staff.Service
	Notifications *notification.Service
	Hub           *notification.Hub

	closers []func() error
}

// New connects storage and builds every service. db may be nil, in which
// case cfg.DatabaseURL is opened and migrated.
func New(cfg *config.Config, log zerolog.Logger, db *gorm.DB) (*App, error) {
	a := &App{Config: cfg, Log: log}

	if db == nil {
		var err error
		db, err = database.Connect(cfg.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	a.DB = db

	venue, err := config.LoadVenue(cfg.VenueConfig)
	if err != nil {
		return nil, err
	}
	a.Venue = config.NewVenueStore(venue)

	locker, err := a.locker()
	if err != nil {
		return nil, err
	}

	a.JWT = jwt.New(cfg.JWTSecret, cfg.JWTTTL)
	a.Bus = events.NewBus(log)
	a.Providers = payment.Providers{
		payment.GatewayWechatPay: gateway.NewSigned(payment.GatewayWechatPay, cfg.GatewaySecret, cfg.GatewayCheckoutURL, log),
	}

	a.Cards = card.NewService(db, a.Providers, locker, a.Bus, log)
	a.Bookings = booking.NewService(db, a.Providers, a.Cards, a.Venue, locker, a.Bus, log)
	a.Settlement = settlement.NewRouter(payment.NewRepository(db), a.Providers, a.Bookings, a.Cards, log)
	a.Staff = staff.NewService(staff.NewRepository(db), a.JWT, log)

	a.Hub = notification.NewHub(log)
	a.Notifications = notification.NewService(notification.NewRepository(db), a.Hub, log)
	a.Notifications.Subscribe(a.Bus)

	if cfg.RabbitMQURL != "" {
		fwd := broker.NewForwarder(cfg.RabbitMQURL, cfg.EventsQueue, log)
		fwd.Subscribe(a.Bus)
		a.closers = append(a.closers, fwd.Close)
		log.Info().Str("queue", cfg.EventsQueue).Msg("forwarding events to broker")
	} else {
		loyalty.Subscribe(a.Bus, loyalty.NewLogSyncer(log))
	}

	return a, nil
}

func (a *App) locker() (lock.Locker, error) {
	if a.Config.RedisAddr == "" {
		a.Log.Info().Msg("using in-process locks")
		return lock.NewLocal(), nil
	}
	cli := redis.NewClient(&redis.Options{
		Addr:     a.Config.RedisAddr,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	})
	if err := cli.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, cli.Close)
	return lock.NewRedis(cli, a.Config.LockTTL, a.Log), nil
}

// Close waits for in-flight event handlers and releases connections.
func (a *App) Close() {
	a.Bus.Wait()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn().Err(err).Msg("close failed")
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

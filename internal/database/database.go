package database

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/uicestone/minimars-server-sub000/internal/domain/booking"
	"github.com/uicestone/minimars-server-sub000/internal/domain/card"
	"github.com/uicestone/minimars-server-sub000/internal/domain/catalog"
	"github.com/uicestone/minimars-server-sub000/internal/domain/customer"
	"github.com/uicestone/minimars-server-sub000/internal/domain/notification"
	"github.com/uicestone/minimars-server-sub000/internal/domain/payment"
	"github.com/uicestone/minimars-server-sub000/internal/domain/staff"
)

func Connect(dsn string, log zerolog.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.New(gormWriter{log}, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Info().Msg("connecting to PostgreSQL")
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	log.Info().Str("dsn", dsn).Msg("using SQLite for local development")

	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
}

// Models lists every persisted entity.
func Models() []any {
	return []any{
		&customer.Customer{},
		&staff.Staff{},
		&catalog.Store{},
		&catalog.Event{},
		&catalog.Gift{},
		&catalog.Coupon{},
		&card.CardType{},
		&card.Card{},
		&booking.Booking{},
		&payment.Payment{},
		&notification.Notification{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warn().Str("component", "gorm").Msgf(format, args...)
}

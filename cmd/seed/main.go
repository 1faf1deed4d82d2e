package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uicestone/minimars-server-sub000/internal/config"
	"github.com/uicestone/minimars-server-sub000/internal/database"
	"github.com/uicestone/minimars-server-sub000/internal/domain/card"
	"github.com/uicestone/minimars-server-sub000/internal/domain/catalog"
	"github.com/uicestone/minimars-server-sub000/internal/domain/customer"
	"github.com/uicestone/minimars-server-sub000/internal/domain/staff"
	"github.com/uicestone/minimars-server-sub000/internal/logging"
	"github.com/uicestone/minimars-server-sub000/internal/pkg/jwt"
)

const demoStoreID = "00000000-0000-0000-0000-000000000001"

func main() {
	adminPhone := flag.String("admin-phone", "13800000000", "phone of the seeded admin")
	adminPin := flag.String("admin-pin", "000000", "PIN of the seeded admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal := zerolog.New(os.Stderr)
		fatal.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg)

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("DB connection failed")
	}
	log.Info().Msg("running AutoMigrate")
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("AutoMigrate failed")
	}

	ctx := context.Background()
	if err := seedStore(db); err != nil {
		log.Fatal().Err(err).Msg("seed store")
	}
	n, err := seedCardTypes(db)
	if err != nil {
		log.Fatal().Err(err).Msg("seed card types")
	}
	log.Info().Int64("created", n).Msg("card types seeded")

	if err := seedCustomer(db); err != nil {
		log.Fatal().Err(err).Msg("seed customer")
	}

	hash, err := staff.HashPin(*adminPin)
	if err != nil {
		log.Fatal().Err(err).Msg("hash pin")
	}
	admin := &staff.Staff{Name: "Admin", Phone: *adminPhone, PinHash: hash, Role: jwt.RoleAdmin, StoreID: demoStoreID, Active: true}
	switch err := staff.NewRepository(db).Create(ctx, admin); {
	case errors.Is(err, staff.ErrPhoneTaken):
		log.Info().Str("phone", *adminPhone).Msg("admin already exists")
	case err != nil:
		log.Fatal().Err(err).Msg("seed admin")
	default:
		log.Info().Str("phone", *adminPhone).Msg("admin created")
	}

	log.Info().Msg("seed completed")
}

func seedStore(db *gorm.DB) error {
	limit := catalog.DailyLimit{
		Common: []catalog.GroupLimit{{Group: "", Limits: [7]int{300, 200, 200, 200, 200, 200, 300}}},
	}
	store := &catalog.Store{
		ID:         demoStoreID,
		Name:       "MiniMars Flagship",
		Address:    "1 Demo Road",
		DailyLimit: datatypes.NewJSONType(limit),
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(store).Error
}

func seedCardTypes(db *gorm.DB) (int64, error) {
	days365 := 365
	types := []card.CardType{
		{
			Slug: "times-10", Title: "10 visits", Type: card.TypeTimes,
			Price: decimal.NewFromInt(1500), Times: 10, ExpiresInDays: &days365,
			MaxKids: 2, FreeParentsPerKid: 1,
		},
		{
			Slug: "year-pass", Title: "Annual pass", Type: card.TypePeriod,
			Price: decimal.NewFromInt(3980), ExpiresInDays: &days365,
			MaxKids: 1, FreeParentsPerKid: 2,
		},
		{
			Slug: "balance", Title: "Stored value", Type: card.TypeBalance,
			BalancePriceGroups: datatypes.JSONSlice[card.BalancePriceGroup]{
				{Balance: decimal.NewFromInt(1000), Price: decimal.NewFromInt(900)},
				{Balance: decimal.NewFromInt(3000), Price: decimal.NewFromInt(2500)},
			},
		},
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&types)
	return res.RowsAffected, res.Error
}

func seedCustomer(db *gorm.DB) error {
	c := &customer.Customer{
		ID:     "00000000-0000-0000-0000-000000000101",
		Name:   "Demo Parent",
		Mobile: "13900000000",
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(c).Error
}

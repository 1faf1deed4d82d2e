package customer

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uicestone/minimars-server-sub000/internal/domain/errs"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, c *Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Customer, error) {
	return r.get(r.db.WithContext(ctx), id)
}

// GetForUpdate locks the customer row for the rest of the transaction.
func (r *Repository) GetForUpdate(ctx context.Context, id string) (*Customer, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *Repository) get(q *gorm.DB, id string) (*Customer, error) {
	var c Customer
	if err := q.First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

// SaveLedger writes balance and points.
func (r *Repository) SaveLedger(ctx context.Context, c *Customer) error {
	return r.db.WithContext(ctx).
		Model(&Customer{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"balance_deposit": c.BalanceDeposit,
			"balance_reward":  c.BalanceReward,
			"points":          c.Points,
		}).Error
}

// SaveProfile writes tags, covers and first-play fields.
func (r *Repository) SaveProfile(ctx context.Context, c *Customer) error {
	return r.db.WithContext(ctx).
		Model(&Customer{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"tags":                c.Tags,
			"covers":              c.Covers,
			"first_play_date":     c.FirstPlayDate,
			"first_play_store_id": c.FirstPlayStoreID,
		}).Error
}

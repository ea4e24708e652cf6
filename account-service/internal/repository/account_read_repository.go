package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/eaglebank/banking/shared/models"
	sharedredis "github.com/eaglebank/banking/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	accountViewKeyPrefix   = "account:view:"
	accountNumberKeyPrefix = "account:number:"
)

// AccountReadRepository serves account reads from the Redis read model and
// falls back to the AccountStore, warming the cache on every cold read.
// Views are written with UpdatedAt as their version: the command side stores
// the fresh view after each commit, and a cold read that loaded the row
// before that commit cannot overwrite it.
type AccountReadRepository struct {
	accounts AccountStore
	views    *sharedredis.ViewCache[models.AccountView]
	numbers  *sharedredis.ViewCache[int64]
}

func NewAccountReadRepository(accounts AccountStore, redisClient *goredis.Client, ttl time.Duration, log *zap.Logger) *AccountReadRepository {
	return &AccountReadRepository{
		accounts: accounts,
		views:    sharedredis.NewViewCache[models.AccountView](redisClient, ttl, log),
		numbers:  sharedredis.NewViewCache[int64](redisClient, ttl, log),
	}
}

func accountViewKey(id int64) string {
	return accountViewKeyPrefix + strconv.FormatInt(id, 10)
}

// GetByID returns an AccountView, trying Redis first then the store.
func (r *AccountReadRepository) GetByID(ctx context.Context, id int64) (*models.AccountView, error) {
	if view, ok := r.views.Get(ctx, accountViewKey(id)); ok {
		return view, nil
	}

	account, err := r.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view := models.NewAccountView(account)
	r.CacheAccountView(ctx, view)
	return view, nil
}

// GetByAccountNumber resolves the number through its index key, then reads
// the view by ID.
func (r *AccountReadRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*models.AccountView, error) {
	if id, ok := r.numbers.Get(ctx, accountNumberKeyPrefix+accountNumber); ok {
		if view, ok := r.views.Get(ctx, accountViewKey(*id)); ok {
			return view, nil
		}
	}

	account, err := r.accounts.GetByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	view := models.NewAccountView(account)
	r.CacheAccountView(ctx, view)
	return view, nil
}

func (r *AccountReadRepository) List(ctx context.Context) ([]models.AccountView, error) {
	accounts, err := r.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	return toViews(accounts), nil
}

func (r *AccountReadRepository) ListByCustomer(ctx context.Context, customerID int64) ([]models.AccountView, error) {
	accounts, err := r.accounts.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return toViews(accounts), nil
}

// CacheAccountView stores the view unless a newer one is already cached.
func (r *AccountReadRepository) CacheAccountView(ctx context.Context, view *models.AccountView) {
	if !r.views.SetVersioned(ctx, accountViewKey(view.ID), view.UpdatedAt.UnixMicro(), view) {
		return
	}
	id := view.ID
	r.numbers.Set(ctx, accountNumberKeyPrefix+view.AccountNumber, &id)
}

// InvalidateAccountView removes a deleted account from the read model. The
// view key stays retired so a late cold read cannot bring it back.
func (r *AccountReadRepository) InvalidateAccountView(ctx context.Context, id int64, accountNumber string) {
	r.views.Retire(ctx, accountViewKey(id))
	if accountNumber != "" {
		r.numbers.Delete(ctx, accountNumberKeyPrefix+accountNumber)
	}
}

func toViews(accounts []models.Account) []models.AccountView {
	views := make([]models.AccountView, 0, len(accounts))
	for i := range accounts {
		views = append(views, *models.NewAccountView(&accounts[i]))
	}
	return views
}

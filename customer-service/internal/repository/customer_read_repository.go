package repository

import (
	"context"
	"strconv"

	"github.com/eaglebank/banking/shared/models"
	sharedredis "github.com/eaglebank/banking/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// The account service reads this key to check that a customer exists, so
// entries never expire and are refreshed after every mutation.
const customerViewKeyPrefix = "customer:view:"

// CustomerReadRepository handles all read operations for customers.
// It uses Redis as the primary read store, falling back to PostgreSQL on a miss.
type CustomerReadRepository struct {
	customers CustomerStore
	cache     *sharedredis.ViewCache[models.CustomerView]
	log       *zap.Logger
}

func NewCustomerReadRepository(customers CustomerStore, redisClient *goredis.Client, log *zap.Logger) *CustomerReadRepository {
	return &CustomerReadRepository{
		customers: customers,
		cache:     sharedredis.NewViewCache[models.CustomerView](redisClient, 0, log),
		log:       log,
	}
}

func customerViewKey(id int64) string {
	return customerViewKeyPrefix + strconv.FormatInt(id, 10)
}

// GetByID returns a CustomerView from Redis first, then PostgreSQL.
func (r *CustomerReadRepository) GetByID(ctx context.Context, id int64) (*models.CustomerView, error) {
	if view, ok := r.cache.Get(ctx, customerViewKey(id)); ok {
		return view, nil
	}

	customer, err := r.customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Warm the cache
	view := models.NewCustomerView(customer)
	r.CacheCustomerView(ctx, view)
	return view, nil
}

func (r *CustomerReadRepository) List(ctx context.Context) ([]models.CustomerView, error) {
	customers, err := r.customers.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.CustomerView, 0, len(customers))
	for i := range customers {
		views = append(views, *models.NewCustomerView(&customers[i]))
	}
	return views, nil
}

// Warm caches every customer so lookups by other services succeed after a
// Redis flush.
func (r *CustomerReadRepository) Warm(ctx context.Context) (int, error) {
	if !r.cache.Enabled() {
		return 0, nil
	}
	views, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	for i := range views {
		r.CacheCustomerView(ctx, &views[i])
	}
	r.log.Info("customer read model warmed", zap.Int("customers", len(views)))
	return len(views), nil
}

// CacheCustomerView stores the view unless a newer one is already cached.
// Called by the command service after every mutation and by cold reads.
func (r *CustomerReadRepository) CacheCustomerView(ctx context.Context, view *models.CustomerView) {
	r.cache.SetVersioned(ctx, customerViewKey(view.ID), view.UpdatedAt.UnixMicro(), view)
}

// InvalidateCustomerView removes a deleted customer for good, so the account
// service stops accepting it even if a cold read was in flight.
func (r *CustomerReadRepository) InvalidateCustomerView(ctx context.Context, id int64) {
	r.cache.Retire(ctx, customerViewKey(id))
}

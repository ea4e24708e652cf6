package repository

import (
	"context"
	"strconv"

	"github.com/eaglebank/banking/shared/models"
	sharedredis "github.com/eaglebank/banking/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// customerViewKeyPrefix must match the key the customer service writes its
// read model under.
const customerViewKeyPrefix = "customer:view:"

// RedisCustomerLookup answers "does this customer exist" from the customer
// service's read model in Redis.
type RedisCustomerLookup struct {
	cache *sharedredis.ViewCache[models.CustomerView]
}

func NewRedisCustomerLookup(client *goredis.Client, log *zap.Logger) *RedisCustomerLookup {
	return &RedisCustomerLookup{cache: sharedredis.NewViewCache[models.CustomerView](client, 0, log)}
}

func (l *RedisCustomerLookup) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	_, ok := l.cache.Get(ctx, customerViewKeyPrefix+strconv.FormatInt(customerID, 10))
	return ok, nil
}

// Package leader определяет основной экземпляр send-money: плановая
// сверка выполняется только на нём.
package leader

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"example.com/send-money/pkg/logger"
)

// Static — экземпляр с фиксированной ролью (один экземпляр, тесты, cron).
type Static bool

// IsPrimaryInstance возвращает заданную роль.
func (s Static) IsPrimaryInstance(context.Context) bool {
	return bool(s)
}

const (
	// DefaultLockKey — ключ блокировки основного экземпляра.
	DefaultLockKey = "sendmoney:leader"

	// DefaultLockTTL — срок блокировки. Основной экземпляр продлевает её
	// при каждом проходе; если он пропал, роль переходит через TTL.
	DefaultLockTTL = 15 * time.Minute
)

// refreshScript продлевает блокировку, только если она принадлежит нам.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisGate — роль основного экземпляра через блокировку в Redis.
type RedisGate struct {
	redis      *redis.Client
	key        string
	ttl        time.Duration
	instanceID string
}

// NewRedisGate создаёт RedisGate со случайным id экземпляра.
// ttl <= 0 — DefaultLockTTL; пустой key — DefaultLockKey.
func NewRedisGate(rdb *redis.Client, key string, ttl time.Duration) *RedisGate {
	if key == "" {
		key = DefaultLockKey
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisGate{redis: rdb, key: key, ttl: ttl, instanceID: uuid.New().String()}
}

// InstanceID возвращает id этого экземпляра.
func (g *RedisGate) InstanceID() string {
	return g.instanceID
}

// IsPrimaryInstance захватывает или продлевает блокировку.
// При ошибке Redis экземпляр считается неосновным: пропущенный проход
// безопаснее двух одновременных.
func (g *RedisGate) IsPrimaryInstance(ctx context.Context) bool {
	log := logger.Ctx(ctx)

	acquired, err := g.redis.SetNX(ctx, g.key, g.instanceID, g.ttl).Result()
	if err != nil {
		log.Warn().Err(err).Str("key", g.key).Msg("Ошибка Redis при выборе основного экземпляра")
		return false
	}
	if acquired {
		log.Info().Str("instance_id", g.instanceID).Msg("Экземпляр стал основным")
		return true
	}

	refreshed, err := refreshScript.Run(ctx, g.redis, []string{g.key}, g.instanceID, g.ttl.Milliseconds()).Int()
	if err != nil {
		log.Warn().Err(err).Str("key", g.key).Msg("Ошибка Redis при продлении блокировки основного экземпляра")
		return false
	}
	return refreshed == 1
}

// Release снимает блокировку, если она принадлежит этому экземпляру.
// Вызывается при остановке, чтобы роль перешла без ожидания TTL.
func (g *RedisGate) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, g.redis, []string{g.key}, g.instanceID).Err()
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

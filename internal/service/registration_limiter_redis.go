package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Incrementa el contador y fija su vencimiento solo en el primer evento de
// la ventana.
const registrationCounterScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

const (
	registrationCodeKey    = "bb:register:codes:"
	registrationAttemptKey = "bb:register:attempts:"
	redisLimiterTimeout    = 500 * time.Millisecond
)

type registrationRedis interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// redisRegistrationLimiter comparte los contadores del alta entre replicas.
// Con Redis caido el alta sigue: se emite el codigo y el intento fallido no
// cuenta.
type redisRegistrationLimiter struct {
	client registrationRedis
	limits RegistrationLimits
	logger *zap.Logger
}

func NewRedisRegistrationLimiter(client *redis.Client, limits RegistrationLimits, logger *zap.Logger) RegistrationLimiter {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisRegistrationLimiter{client: client, limits: limits.withDefaults(), logger: logger}
}

func (l *redisRegistrationLimiter) AllowCode(email string) bool {
	n, ok := l.incr(registrationCodeKey + email)
	if !ok {
		return true
	}
	return n <= l.limits.MaxCodes
}

func (l *redisRegistrationLimiter) FailedAttempt(email string) bool {
	n, ok := l.incr(registrationAttemptKey + email)
	if !ok {
		return false
	}
	return n >= l.limits.MaxAttempts
}

func (l *redisRegistrationLimiter) ResetAttempts(email string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisLimiterTimeout)
	defer cancel()
	if err := l.client.Del(ctx, registrationAttemptKey+email).Err(); err != nil {
		l.logger.Warn("reset verification attempts failed", zap.Error(err), zap.String("email", email))
	}
}

func (l *redisRegistrationLimiter) incr(key string) (int, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisLimiterTimeout)
	defer cancel()

	seconds := int(l.limits.Window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	n, err := l.client.Eval(ctx, registrationCounterScript, []string{key}, seconds).Int()
	if err != nil {
		l.logger.Warn("registration limiter unavailable", zap.Error(err), zap.String("key", key))
		return 0, false
	}
	return n, true
}

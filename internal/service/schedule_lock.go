package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrScheduleLocked is returned when another request is scheduling for the
// same doctor or patient and the lock could not be acquired in time.
var ErrScheduleLocked = errors.New("scheduling in progress for this doctor or patient, try again")

// releaseLockScript deletes a lock key only when it still holds our token,
// so an expired lock re-acquired by another request is never released by us.
var releaseLockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

const (
	doctorLockKeyPrefix  = "schedule:lock:doctor:"
	patientLockKeyPrefix = "schedule:lock:patient:"
)

// ScheduleLocker serializes conflict-check + commit for a given doctor and
// patient against other in-flight scheduling requests. Without it two
// concurrent requests could each pass the conflict check against a snapshot
// that does not include the other, and both commit overlapping slots.
type ScheduleLocker interface {
	Acquire(ctx context.Context, doctorID, patientID int64) (release func(), err error)
}

// RedisScheduleLocker implements ScheduleLocker with per-entity advisory
// locks in Redis (SET NX PX plus token-checked release).
type RedisScheduleLocker struct {
	redisClient *redis.Client
	log         *logrus.Logger
	ttl         time.Duration
	retryDelay  time.Duration
	maxRetries  int
}

func NewRedisScheduleLocker(redisClient *redis.Client, log *logrus.Logger, ttl time.Duration) *RedisScheduleLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisScheduleLocker{
		redisClient: redisClient,
		log:         log,
		ttl:         ttl,
		retryDelay:  50 * time.Millisecond,
		maxRetries:  20,
	}
}

// Acquire takes the doctor lock and then the patient lock. Lock order is
// fixed (doctor first) so two requests touching the same pair cannot
// deadlock. The returned release func is safe to call exactly once.
func (l *RedisScheduleLocker) Acquire(ctx context.Context, doctorID, patientID int64) (func(), error) {
	doctorKey := fmt.Sprintf("%s%d", doctorLockKeyPrefix, doctorID)
	patientKey := fmt.Sprintf("%s%d", patientLockKeyPrefix, patientID)
	token := uuid.New().String()

	releaseDoctor, err := l.acquireKey(ctx, doctorKey, token)
	if err != nil {
		return nil, err
	}

	releasePatient, err := l.acquireKey(ctx, patientKey, token)
	if err != nil {
		releaseDoctor()
		return nil, err
	}

	return func() {
		releasePatient()
		releaseDoctor()
	}, nil
}

func (l *RedisScheduleLocker) acquireKey(ctx context.Context, key, token string) (func(), error) {
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		ok, err := l.redisClient.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { l.releaseKey(key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
	return nil, ErrScheduleLocked
}

func (l *RedisScheduleLocker) releaseKey(key, token string) {
	// Release runs on its own timeout: the request context may already be
	// cancelled and the lock must still be freed.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := releaseLockScript.Run(ctx, l.redisClient, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		l.log.Warnf("Failed to release schedule lock %s: %+v", key, err)
	}
}

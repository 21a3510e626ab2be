package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"BilgiNotifier/internal/domain"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

const (
	redisKeyPrefix = "notification:"
	recordTimeout  = 2 * time.Second
)

// StatusRecorder сохраняет снимки задач в Redis для последующего просмотра статуса.
// Без Redis запись отключена, на рассылку это не влияет.
type StatusRecorder struct {
	redis      domain.RedisRepository
	expiration time.Duration
	now        func() time.Time
}

// NewStatusRecorder создает StatusRecorder. rdb может быть nil.
func NewStatusRecorder(rdb domain.RedisRepository, expiration time.Duration) *StatusRecorder {
	return &StatusRecorder{redis: rdb, expiration: expiration, now: time.Now}
}

// Enabled сообщает, подключено ли хранилище.
func (r *StatusRecorder) Enabled() bool {
	return r.redis != nil
}

// Record сохраняет текущий снимок задачи. Ошибки только логируются.
func (r *StatusRecorder) Record(ctx context.Context, j *domain.Job, lastErr error) {
	if !r.Enabled() {
		return
	}
	snapshot := domain.NewJobSnapshot(j, lastErr, r.now())
	data, err := json.Marshal(snapshot)
	if err != nil {
		zlog.Logger.Error().Msgf("%s failed to marshal job snapshot: %v", j.ID, err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	if err := r.redis.SetWithExpiration(ctx, redisKeyPrefix+j.ID.String(), data, r.expiration); err != nil {
		zlog.Logger.Error().Msgf("%s failed to store job snapshot: %v", j.ID, err)
	}
}

// Lookup возвращает последний сохраненный снимок задачи.
func (r *StatusRecorder) Lookup(ctx context.Context, id uuid.UUID) (*domain.JobSnapshot, error) {
	if !r.Enabled() {
		return nil, domain.ErrStatusStoreDisabled
	}
	data, err := r.redis.Get(ctx, redisKeyPrefix+id.String())
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		zlog.Logger.Error().Err(err).Msgf("failed to fetch job snapshot %s", id)
		return nil, err
	}
	var s domain.JobSnapshot
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job snapshot: %w", err)
	}
	return &s, nil
}

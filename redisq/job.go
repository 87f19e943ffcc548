package redisq

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/roadrunner-server/errors"

	"github.com/queuedash/queuedash"
)

// jobHandle is a resolved reference to one job. The entity snapshot is taken
// at lookup time; State always goes back to Redis.
type jobHandle struct {
	q   *Queue
	job *queuedash.Job
}

func (h *jobHandle) Job() *queuedash.Job {
	return h.job
}

func (h *jobHandle) State(ctx context.Context) (queuedash.JobState, error) {
	const op = errors.Op("redisq_job_state")

	// list states first, then the sorted sets
	for _, state := range []queuedash.JobState{queuedash.StateWaiting, queuedash.StateActive} {
		_, err := h.q.rdb.LPos(ctx, h.q.stateKey(state), h.job.ID, redis.LPosArgs{}).Result()
		if err == nil {
			return state, nil
		}
		if err != redis.Nil {
			return "", errors.E(op, err)
		}
	}

	for _, state := range []queuedash.JobState{queuedash.StateDelayed, queuedash.StateCompleted, queuedash.StateFailed} {
		_, err := h.q.rdb.ZScore(ctx, h.q.stateKey(state), h.job.ID).Result()
		if err == nil {
			return state, nil
		}
		if err != redis.Nil {
			return "", errors.E(op, err)
		}
	}

	return "", queuedash.ErrJobNotFound
}

func (h *jobHandle) Remove(ctx context.Context) error {
	const op = errors.Op("redisq_job_remove")

	id := h.job.ID
	_, err := h.q.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, h.q.stateKey(queuedash.StateWaiting), 0, id)
		p.LRem(ctx, h.q.stateKey(queuedash.StateActive), 0, id)
		p.ZRem(ctx, h.q.stateKey(queuedash.StateDelayed), id)
		p.ZRem(ctx, h.q.stateKey(queuedash.StateCompleted), id)
		p.ZRem(ctx, h.q.stateKey(queuedash.StateFailed), id)
		p.Del(ctx, h.q.jobKey(id), h.q.logsKey(id))
		return nil
	})
	if err != nil {
		return errors.E(op, err)
	}

	h.q.publish(ctx, "removed", map[string]string{"id": id})
	return nil
}

func (h *jobHandle) Retry(ctx context.Context) error {
	const op = errors.Op("redisq_job_retry")

	n, err := h.q.rdb.ZRem(ctx, h.q.stateKey(queuedash.StateFailed), h.job.ID).Result()
	if err != nil {
		return errors.E(op, err)
	}
	if n == 0 {
		return errors.E(op, errors.Errorf("job %s is not in the failed state", h.job.ID))
	}

	if err := h.q.rdb.RPush(ctx, h.q.stateKey(queuedash.StateWaiting), h.job.ID).Err(); err != nil {
		return errors.E(op, err)
	}

	h.q.publish(ctx, "waiting", map[string]string{"id": h.job.ID})
	return nil
}

func (h *jobHandle) Promote(ctx context.Context) error {
	const op = errors.Op("redisq_job_promote")

	n, err := h.q.rdb.ZRem(ctx, h.q.stateKey(queuedash.StateDelayed), h.job.ID).Result()
	if err != nil {
		return errors.E(op, err)
	}
	if n == 0 {
		return errors.E(op, errors.Errorf("job %s is not in the delayed state", h.job.ID))
	}

	if err := h.q.rdb.RPush(ctx, h.q.stateKey(queuedash.StateWaiting), h.job.ID).Err(); err != nil {
		return errors.E(op, err)
	}

	h.q.publish(ctx, "waiting", map[string]string{"id": h.job.ID})
	return nil
}

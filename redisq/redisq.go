// Package redisq implements the queuedash engine collaborator surface on top
// of Redis. Each queue keeps waiting/active job ids in lists, delayed,
// completed and failed ids in sorted sets scored by timestamp, job bodies in
// per-job string keys, and publishes state-change events on a pub/sub
// channel consumed by Feed.
package redisq

import (
	"context"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/roadrunner-server/errors"
	"go.uber.org/zap"

	"github.com/queuedash/queuedash"
)

// Config defines adapter settings.
type Config struct {
	// Prefix namespaces every key this adapter touches. Default "qd".
	Prefix string `mapstructure:"prefix"`
	// SearchScanDepth bounds how many jobs per state a search inspects.
	// Default 1000.
	SearchScanDepth int `mapstructure:"search_scan_depth"`
}

func (c *Config) InitDefaults() {
	if c.Prefix == "" {
		c.Prefix = "qd"
	}

	if c.SearchScanDepth == 0 {
		c.SearchScanDepth = 1000
	}
}

// Queue is a Redis-backed queue handle. Safe for concurrent use; every
// method is a bounded set of Redis calls.
type Queue struct {
	cfg  *Config
	log  *zap.Logger
	rdb  redis.UniversalClient
	name string
}

// New builds a handle over one named queue.
func New(cfg *Config, log *zap.Logger, rdb redis.UniversalClient, name string) *Queue {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.InitDefaults()

	if log == nil {
		log = zap.NewNop()
	}

	return &Queue{
		cfg:  cfg,
		log:  log,
		rdb:  rdb,
		name: name,
	}
}

func (q *Queue) Name() string {
	return q.name
}

// key builds "<prefix>:<queue>:<suffix>".
func (q *Queue) key(suffix string) string {
	return q.cfg.Prefix + ":" + q.name + ":" + suffix
}

func (q *Queue) jobKey(id string) string {
	return q.key("job:" + id)
}

func (q *Queue) logsKey(id string) string {
	return q.key("logs:" + id)
}

// stateKey maps a job state onto its membership structure.
func (q *Queue) stateKey(state queuedash.JobState) string {
	return q.key(string(state))
}

func (q *Queue) JobCounts(ctx context.Context) (*queuedash.Counts, error) {
	const op = errors.Op("redisq_job_counts")

	var waiting, active, delayed, completed, failed *redis.IntCmd
	_, err := q.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		waiting = p.LLen(ctx, q.stateKey(queuedash.StateWaiting))
		active = p.LLen(ctx, q.stateKey(queuedash.StateActive))
		delayed = p.ZCard(ctx, q.stateKey(queuedash.StateDelayed))
		completed = p.ZCard(ctx, q.stateKey(queuedash.StateCompleted))
		failed = p.ZCard(ctx, q.stateKey(queuedash.StateFailed))
		return nil
	})
	if err != nil {
		return nil, errors.E(op, err)
	}

	return &queuedash.Counts{
		Waiting:   waiting.Val(),
		Active:    active.Val(),
		Delayed:   delayed.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
	}, nil
}

func (q *Queue) Paused(ctx context.Context) (bool, error) {
	const op = errors.Op("redisq_paused")

	n, err := q.rdb.Exists(ctx, q.key("paused")).Result()
	if err != nil {
		return false, errors.E(op, err)
	}

	return n > 0, nil
}

// stateIDs returns job ids in a state over the half-open window [start, end).
// Completed and failed are ordered newest first, delayed soonest first.
func (q *Queue) stateIDs(ctx context.Context, state queuedash.JobState, start, end int) ([]string, error) {
	if end <= start {
		return nil, nil
	}

	switch state {
	case queuedash.StateWaiting, queuedash.StateActive:
		return q.rdb.LRange(ctx, q.stateKey(state), int64(start), int64(end-1)).Result()
	case queuedash.StateDelayed:
		return q.rdb.ZRange(ctx, q.stateKey(state), int64(start), int64(end-1)).Result()
	case queuedash.StateCompleted, queuedash.StateFailed:
		return q.rdb.ZRevRange(ctx, q.stateKey(state), int64(start), int64(end-1)).Result()
	default:
		return nil, errors.Errorf("unknown state: %s", state)
	}
}

// fetchJobs resolves ids into job entities, skipping bodies that vanished
// between the id listing and the fetch.
func (q *Queue) fetchJobs(ctx context.Context, ids []string) ([]*queuedash.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = q.jobKey(id)
	}

	vals, err := q.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]*queuedash.Job, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}

		job := &queuedash.Job{}
		if err := json.Unmarshal([]byte(raw), job); err != nil {
			q.log.Warn("skipping malformed job body", zap.String("queue", q.name), zap.String("id", ids[i]), zap.Error(err))
			continue
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (q *Queue) Jobs(ctx context.Context, state queuedash.JobState, start, end int) ([]*queuedash.Job, error) {
	const op = errors.Op("redisq_jobs")

	ids, err := q.stateIDs(ctx, state, start, end)
	if err != nil {
		return nil, errors.E(op, err)
	}

	jobs, err := q.fetchJobs(ctx, ids)
	if err != nil {
		return nil, errors.E(op, err)
	}

	return jobs, nil
}

func (q *Queue) Job(ctx context.Context, id string) (queuedash.JobHandle, error) {
	raw, err := q.rdb.Get(ctx, q.jobKey(id)).Result()
	if err == redis.Nil {
		return nil, queuedash.ErrJobNotFound
	}
	if err != nil {
		return nil, errors.E(errors.Op("redisq_job"), err)
	}

	job := &queuedash.Job{}
	if err := json.Unmarshal([]byte(raw), job); err != nil {
		return nil, errors.E(errors.Op("redisq_job"), err)
	}

	return &jobHandle{q: q, job: job}, nil
}

func (q *Queue) JobLogs(ctx context.Context, id string) ([]string, error) {
	const op = errors.Op("redisq_job_logs")

	logs, err := q.rdb.LRange(ctx, q.logsKey(id), 0, -1).Result()
	if err != nil {
		return nil, errors.E(op, err)
	}

	return logs, nil
}

func (q *Queue) Workers(ctx context.Context) ([]*queuedash.WorkerInfo, error) {
	const op = errors.Op("redisq_workers")

	fields, err := q.rdb.HGetAll(ctx, q.key("workers")).Result()
	if err != nil {
		return nil, errors.E(op, err)
	}

	workers := make([]*queuedash.WorkerInfo, 0, len(fields))
	for id, raw := range fields {
		w := &queuedash.WorkerInfo{}
		if err := json.Unmarshal([]byte(raw), w); err != nil {
			q.log.Warn("skipping malformed worker record", zap.String("queue", q.name), zap.String("id", id), zap.Error(err))
			continue
		}
		workers = append(workers, w)
	}

	return workers, nil
}

func (q *Queue) Schedulers(ctx context.Context) ([]*queuedash.SchedulerInfo, error) {
	const op = errors.Op("redisq_schedulers")

	fields, err := q.rdb.HGetAll(ctx, q.key("schedulers")).Result()
	if err != nil {
		return nil, errors.E(op, err)
	}

	schedulers := make([]*queuedash.SchedulerInfo, 0, len(fields))
	for key, raw := range fields {
		s := &queuedash.SchedulerInfo{}
		if err := json.Unmarshal([]byte(raw), s); err != nil {
			q.log.Warn("skipping malformed scheduler record", zap.String("queue", q.name), zap.String("key", key), zap.Error(err))
			continue
		}
		schedulers = append(schedulers, s)
	}

	return schedulers, nil
}

func (q *Queue) DeadLetter(ctx context.Context, start, end int) ([]*queuedash.Job, error) {
	const op = errors.Op("redisq_dead_letter")

	if end <= start {
		return nil, nil
	}

	raws, err := q.rdb.LRange(ctx, q.key("dead"), int64(start), int64(end-1)).Result()
	if err != nil {
		return nil, errors.E(op, err)
	}

	jobs := make([]*queuedash.Job, 0, len(raws))
	for _, raw := range raws {
		job := &queuedash.Job{}
		if err := json.Unmarshal([]byte(raw), job); err != nil {
			q.log.Warn("skipping malformed dead-letter body", zap.String("queue", q.name), zap.Error(err))
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (q *Queue) StateCount(ctx context.Context, state queuedash.JobState) (int64, error) {
	const op = errors.Op("redisq_state_count")

	var n int64
	var err error
	switch state {
	case queuedash.StateWaiting, queuedash.StateActive:
		n, err = q.rdb.LLen(ctx, q.stateKey(state)).Result()
	default:
		n, err = q.rdb.ZCard(ctx, q.stateKey(state)).Result()
	}
	if err != nil {
		return 0, errors.E(op, err)
	}

	return n, nil
}

func (q *Queue) Search(ctx context.Context, filter *queuedash.SearchFilter) ([]*queuedash.Job, error) {
	const op = errors.Op("redisq_search")

	states := queuedash.States[:]
	if filter.State != "" {
		states = []queuedash.JobState{filter.State}
	}

	out := make([]*queuedash.Job, 0, filter.Limit)
	for _, state := range states {
		if len(out) >= filter.Limit {
			break
		}

		jobs, err := q.Jobs(ctx, state, 0, q.cfg.SearchScanDepth)
		if err != nil {
			return nil, errors.E(op, err)
		}

		for _, job := range jobs {
			if len(out) >= filter.Limit {
				break
			}

			if filter.Name != "" && job.Name != filter.Name {
				continue
			}
			if !payloadMatches(job.Payload, filter.Data) {
				continue
			}

			job.State = state
			out = append(out, job)
		}
	}

	return out, nil
}

// payloadMatches reports whether every entry of want appears with an equal
// value in the job payload.
func payloadMatches(payload json.RawMessage, want map[string]any) bool {
	if len(want) == 0 {
		return true
	}

	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return false
	}

	for k, v := range want {
		got, ok := data[k]
		if !ok || !equalJSONValue(got, v) {
			return false
		}
	}

	return true
}

func equalJSONValue(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}

func (q *Queue) Pause(ctx context.Context) error {
	const op = errors.Op("redisq_pause")

	if err := q.rdb.Set(ctx, q.key("paused"), "1", 0).Err(); err != nil {
		return errors.E(op, err)
	}

	return nil
}

func (q *Queue) Resume(ctx context.Context) error {
	const op = errors.Op("redisq_resume")

	if err := q.rdb.Del(ctx, q.key("paused")).Err(); err != nil {
		return errors.E(op, err)
	}

	return nil
}

func (q *Queue) Obliterate(ctx context.Context, _ bool) error {
	const op = errors.Op("redisq_obliterate")

	iter := q.rdb.Scan(ctx, 0, q.cfg.Prefix+":"+q.name+":*", 0).Iterator()

	batch := make([]string, 0, 128)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := q.rdb.Del(ctx, batch...).Err(); err != nil {
				return errors.E(op, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.E(op, err)
	}

	if len(batch) > 0 {
		if err := q.rdb.Del(ctx, batch...).Err(); err != nil {
			return errors.E(op, err)
		}
	}

	return nil
}

func (q *Queue) Drain(ctx context.Context, includeDelayed bool) error {
	const op = errors.Op("redisq_drain")

	if err := q.dropState(ctx, queuedash.StateWaiting); err != nil {
		return errors.E(op, err)
	}

	if includeDelayed {
		if err := q.dropState(ctx, queuedash.StateDelayed); err != nil {
			return errors.E(op, err)
		}
	}

	return nil
}

// dropState deletes a state's membership structure and every job body in it.
func (q *Queue) dropState(ctx context.Context, state queuedash.JobState) error {
	ids, err := q.stateIDs(ctx, state, 0, int(^uint(0)>>1))
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(ids)*2+1)
	for _, id := range ids {
		keys = append(keys, q.jobKey(id), q.logsKey(id))
	}
	keys = append(keys, q.stateKey(state))

	return q.rdb.Del(ctx, keys...).Err()
}

func (q *Queue) RetryAll(ctx context.Context, count int) (int64, error) {
	const op = errors.Op("redisq_retry_all")

	end := -1
	if count > 0 {
		end = count - 1
	}

	ids, err := q.rdb.ZRevRange(ctx, q.stateKey(queuedash.StateFailed), 0, int64(end)).Result()
	if err != nil {
		return 0, errors.E(op, err)
	}

	var retried int64
	for _, id := range ids {
		if err := q.moveToWaiting(ctx, queuedash.StateFailed, id); err != nil {
			return retried, errors.E(op, err)
		}
		retried++
	}

	return retried, nil
}

// moveToWaiting removes a job id from a sorted-set state and re-enqueues it,
// announcing the transition on the event channel.
func (q *Queue) moveToWaiting(ctx context.Context, from queuedash.JobState, id string) error {
	_, err := q.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, q.stateKey(from), id)
		p.RPush(ctx, q.stateKey(queuedash.StateWaiting), id)
		return nil
	})
	if err != nil {
		return err
	}

	q.publish(ctx, "waiting", map[string]string{"id": id})
	return nil
}

func (q *Queue) Clean(ctx context.Context, grace time.Duration, limit int64, state queuedash.JobState) (int64, error) {
	const op = errors.Op("redisq_clean")

	maxScore := time.Now().Add(-grace).UnixMilli()

	ids, err := q.rdb.ZRangeByScore(ctx, q.stateKey(state), &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(maxScore, 10),
		Count: limit,
	}).Result()
	if err != nil {
		return 0, errors.E(op, err)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	_, err = q.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		members := make([]any, len(ids))
		for i, id := range ids {
			members[i] = id
			p.Del(ctx, q.jobKey(id), q.logsKey(id))
		}
		p.ZRem(ctx, q.stateKey(state), members...)
		return nil
	})
	if err != nil {
		return 0, errors.E(op, err)
	}

	return int64(len(ids)), nil
}

// Enqueue creates a job in the engine. Creation belongs to the engine side
// of the collaborator surface, which this adapter is.
func (q *Queue) Enqueue(ctx context.Context, name string, payload json.RawMessage, delay time.Duration) (*queuedash.Job, error) {
	const op = errors.Op("redisq_enqueue")

	job := &queuedash.Job{
		ID:        uuid.NewString(),
		Name:      name,
		Payload:   payload,
		CreatedAt: time.Now().UnixMilli(),
	}

	body, err := json.Marshal(job)
	if err != nil {
		return nil, errors.E(op, err)
	}

	_, err = q.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, q.jobKey(job.ID), body, 0)
		if delay > 0 {
			p.ZAdd(ctx, q.stateKey(queuedash.StateDelayed), redis.Z{
				Score:  float64(time.Now().Add(delay).UnixMilli()),
				Member: job.ID,
			})
		} else {
			p.RPush(ctx, q.stateKey(queuedash.StateWaiting), job.ID)
		}
		return nil
	})
	if err != nil {
		return nil, errors.E(op, err)
	}

	if delay == 0 {
		q.publish(ctx, "waiting", map[string]string{"id": job.ID, "name": job.Name})
	}

	return job, nil
}

// publish announces a queue event on the pub/sub channel Feed listens to.
// Announcements are best effort.
func (q *Queue) publish(ctx context.Context, event string, payload any) {
	body, err := json.Marshal(feedEnvelope{Queue: q.name, Event: event, Payload: payload})
	if err != nil {
		q.log.Warn("event marshal failed", zap.String("queue", q.name), zap.String("event", event), zap.Error(err))
		return
	}

	if err := q.rdb.Publish(ctx, q.key("events"), body).Err(); err != nil {
		q.log.Warn("event publish failed", zap.String("queue", q.name), zap.String("event", event), zap.Error(err))
	}
}

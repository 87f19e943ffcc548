package redisq

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/roadrunner-server/errors"
	"go.uber.org/zap"

	"github.com/queuedash/queuedash"
)

// feedEnvelope is the wire shape of one pub/sub event announcement.
type feedEnvelope struct {
	Queue   string `json:"queue"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Feed bridges the per-queue pub/sub channels into in-process emitters the
// gateway multiplexer subscribes to. One Feed serves any number of queues
// sharing a prefix.
type Feed struct {
	cfg      *Config
	log      *zap.Logger
	rdb      redis.UniversalClient
	emitters map[string]*queuedash.Emitter
	order    []string
}

// NewFeed creates one emitter per queue name.
func NewFeed(cfg *Config, log *zap.Logger, rdb redis.UniversalClient, names ...string) *Feed {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.InitDefaults()

	if log == nil {
		log = zap.NewNop()
	}

	f := &Feed{
		cfg:      cfg,
		log:      log,
		rdb:      rdb,
		emitters: make(map[string]*queuedash.Emitter, len(names)),
		order:    names,
	}

	for _, name := range names {
		f.emitters[name] = queuedash.NewEmitter(name)
	}

	return f
}

// Sources returns the emitters in queue order, for gateway configuration.
func (f *Feed) Sources() []queuedash.EventSource {
	out := make([]queuedash.EventSource, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, f.emitters[name])
	}
	return out
}

// Run subscribes to every queue's event channel and dispatches announcements
// to the matching emitter until the context is canceled.
func (f *Feed) Run(ctx context.Context) error {
	const op = errors.Op("redisq_feed_run")

	channels := make([]string, 0, len(f.order))
	for _, name := range f.order {
		channels = append(channels, f.cfg.Prefix+":"+name+":events")
	}

	sub := f.rdb.Subscribe(ctx, channels...)
	defer func() {
		_ = sub.Close()
	}()

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-ch:
			if !ok {
				return errors.E(op, errors.Str("subscription channel closed"))
			}

			var env feedEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				f.log.Warn("malformed event announcement", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}

			if emitter, ok := f.emitters[env.Queue]; ok {
				emitter.Emit(env.Event, env.Payload)
			}
		}
	}
}

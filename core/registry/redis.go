package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const (
	defaultRedisPrefix = "pagegate"
	defaultRedisTTL    = 10 * time.Minute
)

// RedisPublisher mirrors each published snapshot into Redis so orchestrators
// on other hosts can read the current contracts:
//
//	<prefix>:capabilities  list of names in registration order
//	<prefix>:contracts     hash of name -> descriptor JSON
//
// Both keys are replaced in one MULTI/EXEC and expire after the TTL. Run
// republishes the live snapshot every half TTL so a long-running server
// keeps its contracts visible.
type RedisPublisher struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	refresh time.Duration
	logger  zerolog.Logger
}

// RedisOption configures a RedisPublisher.
type RedisOption func(*RedisPublisher)

// WithRedisPrefix sets the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(p *RedisPublisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithRedisTTL sets how long published keys live.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(p *RedisPublisher) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithRedisRefresh overrides the Run interval, which defaults to half the TTL.
func WithRedisRefresh(d time.Duration) RedisOption {
	return func(p *RedisPublisher) {
		if d > 0 {
			p.refresh = d
		}
	}
}

// WithRedisLogger sets the logger used by Run.
func WithRedisLogger(logger zerolog.Logger) RedisOption {
	return func(p *RedisPublisher) { p.logger = logger }
}

// NewRedisPublisher creates a publisher on an existing client.
func NewRedisPublisher(client *redis.Client, opts ...RedisOption) *RedisPublisher {
	p := &RedisPublisher{client: client, prefix: defaultRedisPrefix, ttl: defaultRedisTTL, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.refresh <= 0 {
		p.refresh = p.ttl / 2
	}
	return p
}

// NewRedisPublisherFromURL parses a redis:// URL and connects lazily.
func NewRedisPublisherFromURL(redisURL string, opts ...RedisOption) (*RedisPublisher, error) {
	o, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewRedisPublisher(redis.NewClient(o), opts...), nil
}

// ListKey is the key holding the ordered capability names.
func (p *RedisPublisher) ListKey() string { return p.prefix + ":capabilities" }

// ContractsKey is the key holding descriptor JSON by name.
func (p *RedisPublisher) ContractsKey() string { return p.prefix + ":contracts" }

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, s *Snapshot) error {
	names := s.Names()
	contracts := make(map[string]interface{}, len(names))
	for _, d := range s.Descriptors() {
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encoding contract %s: %w", d.Name, err)
		}
		contracts[d.Name] = string(data)
	}

	pipe := p.client.TxPipeline()
	pipe.Del(ctx, p.ListKey(), p.ContractsKey())
	if len(names) > 0 {
		list := make([]interface{}, len(names))
		for i, n := range names {
			list[i] = n
		}
		pipe.RPush(ctx, p.ListKey(), list...)
		pipe.HSet(ctx, p.ContractsKey(), contracts)
		pipe.Expire(ctx, p.ListKey(), p.ttl)
		pipe.Expire(ctx, p.ContractsKey(), p.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publishing to redis: %w", err)
	}
	return nil
}

// Run republishes r's current snapshot on every refresh tick until ctx is
// done. Failures are logged and retried on the next tick.
func (p *RedisPublisher) Run(ctx context.Context, r *Registry) {
	ticker := time.NewTicker(p.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := r.Snapshot()
			if err := p.Publish(ctx, s); err != nil {
				if ctx.Err() != nil {
					return
				}
				p.logger.Warn().Err(err).Msg("refreshing published contracts")
				continue
			}
			p.logger.Debug().Int("capabilities", s.Len()).Msg("refreshed published contracts")
		}
	}
}

// Close releases the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

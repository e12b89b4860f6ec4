package output

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/model"
	coreoutput "github.com/kilianp07/rebalance/core/output"
	"github.com/kilianp07/rebalance/infra/logger"
	"github.com/kilianp07/rebalance/pkg/export"
)

// DefaultRedisKey holds the plan when no key is configured.
const DefaultRedisKey = "rebalance:plan"

// RedisConfig configures RedisWriter.
type RedisConfig struct {
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	Key        string `json:"key"`
	TTLSeconds int    `json:"ttl_seconds"`
	// Channel, when set, receives the key name after every update.
	Channel string `json:"channel"`
}

// RedisWriter stores the plan document under a single key.
type RedisWriter struct {
	client  *redis.Client
	key     string
	ttl     time.Duration
	channel string
	log     logger.Logger
}

// NewRedisWriter creates the client. The connection is checked lazily on
// the first write.
func NewRedisWriter(cfg RedisConfig) (*RedisWriter, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis output: addr is required")
	}
	if cfg.TTLSeconds < 0 {
		return nil, fmt.Errorf("redis output: ttl_seconds must be >= 0")
	}
	if cfg.Key == "" {
		cfg.Key = DefaultRedisKey
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &RedisWriter{
		client:  client,
		key:     cfg.Key,
		ttl:     time.Duration(cfg.TTLSeconds) * time.Second,
		channel: cfg.Channel,
		log:     logger.New("redis-output"),
	}, nil
}

// Write replaces the stored plan.
func (w *RedisWriter) Write(ctx context.Context, plan *model.RebalancingPlan) error {
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, plan, false); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := w.client.Set(ctx, w.key, bytes.TrimRight(buf.Bytes(), "\n"), w.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", w.key, err)
	}
	if w.channel != "" {
		if err := w.client.Publish(ctx, w.channel, w.key).Err(); err != nil {
			w.log.Warnf("redis publish %s: %v", w.channel, err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (w *RedisWriter) Close() error { return w.client.Close() }

func init() {
	_ = coreoutput.RegisterWriter("redis", func(conf map[string]any) (coreoutput.Writer, error) {
		var c RedisConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRedisWriter(c)
	})
}

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ghalamif/simtemp/internal/domain"
	"github.com/ghalamif/simtemp/internal/ports"
)

type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
	Timeout   time.Duration `yaml:"timeout"`
}

func (c *RedisConfig) ApplyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "simtemp"
	}
	if c.TTL <= 0 {
		c.TTL = time.Minute
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Second
	}
}

// DialRedis opens a client and verifies it with PING.
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisSink keeps the latest sample under <prefix>:<sensor>:last and
// publishes every sample on <prefix>:<sensor>:samples.
type RedisSink struct {
	client redis.Cmdable
	cfg    RedisConfig
}

func NewRedisSink(client redis.Cmdable, cfg RedisConfig) *RedisSink {
	cfg.ApplyDefaults()
	return &RedisSink{client: client, cfg: cfg}
}

func (r *RedisSink) Name() string { return "redis" }

func (r *RedisSink) WriteBatch(samples []*domain.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	payloads := make([][]byte, len(samples))
	for i, s := range samples {
		b, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal sample %d: %w", s.Seq, err)
		}
		payloads[i] = b
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	last := samples[len(samples)-1]
	_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, s := range samples {
			p.Publish(ctx, samplesChannel(r.cfg.KeyPrefix, s.SensorID), payloads[i])
		}
		p.Set(ctx, lastKey(r.cfg.KeyPrefix, last.SensorID), payloads[len(payloads)-1], r.cfg.TTL)
		return nil
	})
	return err
}

func lastKey(prefix, sensorID string) string {
	return prefix + ":" + sensorID + ":last"
}

func samplesChannel(prefix, sensorID string) string {
	return prefix + ":" + sensorID + ":samples"
}

var _ ports.Sink = (*RedisSink)(nil)

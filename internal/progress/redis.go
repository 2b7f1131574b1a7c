package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"docsum/internal/domain"
	"docsum/internal/logger"
)

const (
	flushInterval = 200 * time.Millisecond
	redisTimeout  = 5 * time.Second
	closeAttempts = 3
)

// RedisChannel is a progress channel backed by a Redis list, so a separate
// process can observe a batch. Publish buffers locally and a background
// loop pushes the buffer; Drain pops everything from the list atomically.
type RedisChannel struct {
	client *redis.Client
	key    string
	log    logger.Logger

	pending *Mailbox
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// RedisOptions mirrors the connection fields of the config.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

func NewRedisChannel(opts RedisOptions, log logger.Logger) *RedisChannel {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return newRedisChannel(client, opts.Key, log)
}

func newRedisChannel(client *redis.Client, key string, log logger.Logger) *RedisChannel {
	if log == nil {
		log = logger.Nop()
	}
	c := &RedisChannel{
		client:  client,
		key:     key,
		log:     log.With(logger.String("key", key)),
		pending: NewMailbox(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.loop()
	return c
}

// Ping checks connectivity.
func (c *RedisChannel) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisChannel) Publish(e domain.Event) { c.pending.Publish(e) }

func (c *RedisChannel) loop() {
	defer close(c.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.stop:
			for i := 0; i < closeAttempts && c.flush() != nil; i++ {
				time.Sleep(flushInterval)
			}
			if n := c.pending.Len(); n > 0 {
				c.log.Error("events lost on close", logger.Int("events", n))
			}
			return
		}
	}
}

// flush pushes the buffered events. On failure the events go back to the
// front of the buffer for the next tick.
func (c *RedisChannel) flush() error {
	events := c.pending.Drain()
	if len(events) == 0 {
		return nil
	}
	kept := events[:0]
	values := make([]any, 0, len(events))
	for _, e := range events {
		data, err := encodeEvent(e)
		if err != nil {
			c.log.Error("encode event", logger.String("file", e.Filename), logger.Error(err))
			continue
		}
		kept = append(kept, e)
		values = append(values, data)
	}
	if len(values) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := c.client.RPush(ctx, c.key, values...).Err(); err != nil {
		c.pending.Requeue(kept)
		c.log.Warn("push events, will retry", logger.Int("events", len(values)), logger.Error(err))
		return err
	}
	return nil
}

// Drain pops every event currently on the list in publish order.
func (c *RedisChannel) Drain() []domain.Event {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	var lrange *redis.StringSliceCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, c.key, 0, -1)
		pipe.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		c.log.Warn("drain events", logger.Error(err))
		return nil
	}
	raw := lrange.Val()
	out := make([]domain.Event, 0, len(raw))
	for _, r := range raw {
		e, err := decodeEvent(r)
		if err != nil {
			c.log.Warn("decode event", logger.Error(err))
			continue
		}
		out = append(out, e)
	}
	return out
}

// Close pushes anything still buffered and closes the client.
func (c *RedisChannel) Close() error {
	c.once.Do(func() { close(c.stop) })
	<-c.done
	return c.client.Close()
}

func encodeEvent(e domain.Event) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeEvent(s string) (domain.Event, error) {
	var e domain.Event
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		return domain.Event{}, err
	}
	if !e.Status.Valid() {
		return domain.Event{}, fmt.Errorf("unknown status %q", e.Status)
	}
	return e, nil
}

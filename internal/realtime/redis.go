package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "comments:slide:"

// RedisConfig holds the connection settings for the hosted feed.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis is a Feed over Redis pub/sub, one channel per slide.
type Redis struct {
	client *redis.Client
}

// NewRedis connects and pings the server.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	log.Printf("[feed] connected to %s", cfg.Addr)
	return &Redis{client: client}, nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Publish implements Publisher.
func (r *Redis) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channelPrefix+ev.SlideID, data).Err()
}

// Subscribe implements Feed. It returns once the server confirmed the
// subscription.
func (r *Redis) Subscribe(ctx context.Context, slideID string) (*Subscription, error) {
	ps := r.client.Subscribe(ctx, channelPrefix+slideID)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", slideID, err)
	}

	out := make(chan Event, subscriberBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("[feed] dropping malformed event on %s: %v", msg.Channel, err)
					continue
				}
				offer(out, ev)
			}
		}
	}()

	return newSubscription(slideID, out, func() {
		close(done)
		if err := ps.Close(); err != nil {
			log.Printf("[feed] unsubscribe %s: %v", slideID, err)
		}
	}), nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

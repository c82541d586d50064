package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel carries an answer back to the session named by a callback ref.
type Channel interface {
	Name() string
	// Accepts reports whether the channel can route ref.
	Accepts(ref string) bool
	Send(ctx context.Context, ref string, a Answer) error
}

// WebhookChannel POSTs answers to callback refs that are http(s) URLs.
type WebhookChannel struct {
	client *http.Client
}

// NewWebhookChannel creates a WebhookChannel with a 10 second client timeout.
func NewWebhookChannel() *WebhookChannel {
	return &WebhookChannel{client: &http.Client{Timeout: 10 * time.Second}}
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) Accepts(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func (c *WebhookChannel) Send(ctx context.Context, ref string, a Answer) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding answer: %w", err)
	}
	return postJSON(ctx, c.client, ref, payload)
}

// Publisher is the part of a redis client used for answer delivery.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// DefaultRedisPrefix namespaces answer channels.
const DefaultRedisPrefix = "frontdesk:answers:"

// RedisChannel publishes answers on prefix+ref, where the call agent holding
// that session is subscribed.
type RedisChannel struct {
	pub    Publisher
	prefix string
}

// NewRedisChannel creates a RedisChannel. An empty prefix uses DefaultRedisPrefix.
func NewRedisChannel(pub Publisher, prefix string) *RedisChannel {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisChannel{pub: pub, prefix: prefix}
}

// NewRedisClient connects to the redis server at addr.
func NewRedisClient(addr, password string, database int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       database,
	})
}

func (c *RedisChannel) Name() string { return "redis" }

// Accepts takes any ref, so it belongs last in a channel list.
func (c *RedisChannel) Accepts(ref string) bool { return ref != "" }

func (c *RedisChannel) Send(ctx context.Context, ref string, a Answer) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding answer: %w", err)
	}
	receivers, err := c.pub.Publish(ctx, c.prefix+ref, payload).Result()
	if err != nil {
		return fmt.Errorf("publishing answer: %w", err)
	}
	if receivers == 0 {
		return fmt.Errorf("no subscriber on %s%s", c.prefix, ref)
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

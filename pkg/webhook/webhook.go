// Package webhook provides HTTP webhook notification support for tidy runs.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jvs-project/tidy/pkg/logging"
)

// EventType represents the type of run event that can trigger webhooks.
type EventType string

const (
	EventOrganizeComplete EventType = "organize.complete"
	EventOrganizeFailed   EventType = "organize.failed"
	EventRevertComplete   EventType = "revert.complete"
	EventRevertFailed     EventType = "revert.failed"
	EventPruneComplete    EventType = "prune.complete"
)

// Event represents a payload sent to webhooks.
type Event struct {
	Event     EventType      `json:"event"`
	Timestamp string         `json:"timestamp"`
	RunID     string         `json:"run_id,omitempty"`
	BasePath  string         `json:"base_path,omitempty"`
	Artifact  string         `json:"artifact,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// HookConfig represents a single webhook endpoint.
type HookConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Secret  string        `yaml:"secret,omitempty" json:"secret,omitempty"`
	Events  []EventType   `yaml:"events" json:"events"`
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Enabled bool          `yaml:"enabled" json:"enabled"`
}

// Config represents the webhook configuration.
type Config struct {
	Hooks          []HookConfig  `yaml:"hooks" json:"hooks"`
	Enabled        bool          `yaml:"enabled" json:"enabled"`
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay" json:"retry_delay"`
	AsyncQueueSize int           `yaml:"async_queue_size" json:"async_queue_size"`
}

// DefaultConfig returns the default webhook configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:        false,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		AsyncQueueSize: 32,
	}
}

// Client handles sending webhook notifications.
type Client struct {
	config *Config
	http   *http.Client
	log    *logging.Logger
	queue  chan *job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	closed bool
	mu     sync.RWMutex
}

type job struct {
	event Event
	hook  HookConfig
}

// NewClient creates a new webhook client. A nil config yields a disabled client.
func NewClient(cfg *Config, log *logging.Logger) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logging.Nop()
	}
	size := cfg.AsyncQueueSize
	if size <= 0 {
		size = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		config: cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		log:    log,
		queue:  make(chan *job, size),
		ctx:    ctx,
		cancel: cancel,
	}
	if cfg.Enabled {
		c.once.Do(func() {
			c.wg.Add(1)
			go c.worker()
		})
	}
	return c
}

func (c *Client) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			for {
				select {
				case j := <-c.queue:
					c.send(j)
				default:
					return
				}
			}
		case j := <-c.queue:
			c.send(j)
		}
	}
}

// Send sends an event to all matching webhooks.
// With async the event is queued and delivered by the background worker;
// otherwise it is delivered before Send returns.
func (c *Client) Send(event Event, async bool) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.config.Enabled || c.closed {
		return nil
	}

	var hooks []HookConfig
	for _, hook := range c.config.Hooks {
		if hook.Enabled && matchesEvent(hook, event.Event) {
			hooks = append(hooks, hook)
		}
	}
	if len(hooks) == 0 {
		return nil
	}

	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	if async {
		for _, hook := range hooks {
			select {
			case c.queue <- &job{event: event, hook: hook}:
			default:
				c.log.Warn("webhook queue full, dropping event", map[string]any{
					"event": string(event.Event),
					"url":   hook.URL,
				})
			}
		}
		return nil
	}

	var lastErr error
	for _, hook := range hooks {
		if err := c.sendSync(&job{event: event, hook: hook}); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (c *Client) send(j *job) {
	if err := c.sendSync(j); err != nil {
		c.log.Warn("webhook delivery failed", map[string]any{
			"event": string(j.event.Event),
			"url":   j.hook.URL,
			"error": err.Error(),
		})
	}
}

// sendSync sends a webhook with retries.
func (c *Client) sendSync(j *job) error {
	payload, err := json.Marshal(j.event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-c.ctx.Done():
				return c.ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		if err := c.post(j.hook, payload); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func (c *Client) post(hook HookConfig, payload []byte) error {
	ctx := context.Background()
	if hook.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hook.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tidy-webhook/1.0")
	if hook.Secret != "" {
		req.Header.Set("X-Tidy-Signature", Sign(payload, hook.Secret))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
}

// Sign creates an HMAC-SHA256 signature for the payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func matchesEvent(hook HookConfig, event EventType) bool {
	for _, e := range hook.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}

// Close delivers queued events and shuts the client down.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}

// SendOrganizeComplete sends an organize.complete event.
func (c *Client) SendOrganizeComplete(runID, basePath, artifact string, moved, failed, folders int, async bool) error {
	return c.Send(Event{
		Event:    EventOrganizeComplete,
		RunID:    runID,
		BasePath: basePath,
		Artifact: artifact,
		Metadata: map[string]any{
			"moved":           moved,
			"failed":          failed,
			"folders_created": folders,
		},
	}, async)
}

// SendOrganizeFailed sends an organize.failed event.
func (c *Client) SendOrganizeFailed(runID, basePath, errMsg string, async bool) error {
	return c.Send(Event{
		Event:    EventOrganizeFailed,
		RunID:    runID,
		BasePath: basePath,
		Error:    errMsg,
	}, async)
}

// SendRevertComplete sends a revert.complete event.
func (c *Client) SendRevertComplete(runID, basePath, artifact string, reverted, removed, skipped, failed int, async bool) error {
	return c.Send(Event{
		Event:    EventRevertComplete,
		RunID:    runID,
		BasePath: basePath,
		Artifact: artifact,
		Metadata: map[string]any{
			"reverted":        reverted,
			"folders_removed": removed,
			"skipped":         skipped,
			"failed":          failed,
		},
	}, async)
}

// SendRevertFailed sends a revert.failed event.
func (c *Client) SendRevertFailed(runID, artifact, errMsg string, async bool) error {
	return c.Send(Event{
		Event:    EventRevertFailed,
		RunID:    runID,
		Artifact: artifact,
		Error:    errMsg,
	}, async)
}

// SendPruneComplete sends a prune.complete event.
func (c *Client) SendPruneComplete(deleted int, async bool) error {
	return c.Send(Event{
		Event:    EventPruneComplete,
		Metadata: map[string]any{"artifacts_deleted": deleted},
	}, async)
}

// Package query caches API reads on the client side and retries failed
// requests with exponential backoff.
package query

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/SergeyParamoshkin/blogcms/client"
)

// Key identifies a cached query, e.g. {"articles", "2"}.
type Key []string

const keySep = "\x1f"

func (k Key) String() string {
	return strings.Join(k, keySep)
}

// HasPrefix reports whether k starts with every element of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}

	return true
}

// Options tune the cache and the retry policy.
type Options struct {
	// StaleTime is how long fetched data is served without a refetch.
	StaleTime time.Duration
	// GCTime is how long an entry survives after its last write.
	GCTime     time.Duration
	MaxEntries int

	Retry         int
	MutationRetry int
	// Retry delays double from RetryDelay up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		StaleTime:     5 * time.Second,
		GCTime:        5 * time.Minute,
		MaxEntries:    512,
		Retry:         2,
		MutationRetry: 1,
		RetryDelay:    time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

type entry struct {
	key       Key
	data      interface{}
	updatedAt time.Time
	stale     bool
}

// Client holds the cached query results. It is safe for concurrent use.
type Client struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *entry]
	opts  Options
	now   func() time.Time
}

func NewClient(opts Options) *Client {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultOptions().MaxEntries
	}

	return &Client{
		cache: expirable.NewLRU[string, *entry](opts.MaxEntries, nil, opts.GCTime),
		opts:  opts,
		now:   time.Now,
	}
}

// Fetch returns the cached value of key while it is fresh; otherwise it
// calls fn, retrying transient failures, and caches the result.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	if v, ok := c.fresh(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err := retry(ctx, c.opts.Retry, c.opts, fn)
	if err != nil {
		var zero T

		return zero, err
	}
	c.SetQueryData(key, v)

	return v, nil
}

// Mutate runs fn with the mutation retry policy. It never reads or writes
// the cache.
func Mutate[T any](ctx context.Context, c *Client, fn func(context.Context) (T, error)) (T, error) {
	return retry(ctx, c.opts.MutationRetry, c.opts, fn)
}

// GetQueryData returns whatever is cached under key, fresh or stale.
func GetQueryData[T any](c *Client, key Key) (T, bool) {
	var zero T

	c.mu.Lock()
	e, ok := c.cache.Get(key.String())
	c.mu.Unlock()
	if !ok {
		return zero, false
	}

	typed, ok := e.data.(T)
	if !ok {
		return zero, false
	}

	return typed, true
}

// SetQueryData stores v under key as fresh data.
func (c *Client) SetQueryData(key Key, v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(key.String(), &entry{key: key, data: v, updatedAt: c.now()})
}

// InvalidateQueries marks every entry under prefix stale. The data stays
// available to GetQueryData until it is refetched or collected.
func (c *Client) InvalidateQueries(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.cache.Values() {
		if e.key.HasPrefix(prefix) {
			e.stale = true
		}
	}
}

// RemoveQueries drops every entry under prefix.
func (c *Client) RemoveQueries(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.cache.Values() {
		if e.key.HasPrefix(prefix) {
			c.cache.Remove(e.key.String())
		}
	}
}

// snapshot copies the entries under prefix so they can be restored.
func (c *Client) snapshot(prefix Key) []entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []entry
	for _, e := range c.cache.Values() {
		if e.key.HasPrefix(prefix) {
			out = append(out, *e)
		}
	}

	return out
}

func (c *Client) restore(entries []entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range entries {
		e := entries[i]
		c.cache.Add(e.key.String(), &e)
	}
}

func (c *Client) fresh(key Key) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache.Get(key.String())
	if !ok || e.stale || c.now().Sub(e.updatedAt) >= c.opts.StaleTime {
		return nil, false
	}

	return e.data, true
}

// Retryable reports whether a failed request is worth repeating. Client
// errors are final except timeouts and rate limiting.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	switch status := client.StatusOf(err); {
	case status == 0:
		return true
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	default:
		return status >= http.StatusInternalServerError
	}
}

func retry[T any](ctx context.Context, retries int, opts Options, fn func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.RetryDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = opts.MaxRetryDelay
	b.MaxElapsedTime = 0
	b.Reset()

	var out T
	op := func() error {
		v, err := fn(ctx)
		if err != nil {
			if !Retryable(err) {
				return backoff.Permanent(err)
			}

			return err
		}
		out = v

		return nil
	}

	if retries < 0 {
		retries = 0
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)); err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}

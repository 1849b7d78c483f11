package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/maypok86/otter/v2"

	"github.com/brettz9/sundriven/pkg/logger"
)

// DefaultIPURL answers with the caller's approximate position.
const DefaultIPURL = "https://ipapi.co/json/"

// HTTPClient is the subset of *http.Client used by IPSource.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// IPOptions configures an IPSource.
type IPOptions struct {
	URL          string
	Client       HTTPClient
	Timeout      time.Duration
	CacheTTL     time.Duration
	PollInterval time.Duration
	Attempts     uint
	RetryDelay   time.Duration
	Logger       logger.Logger
}

// IPSource estimates the position from the public IP address. Results are
// cached for CacheTTL; requests are retried with jittered backoff. All
// watchers share one poller, which runs while at least one is registered.
type IPSource struct {
	url      string
	client   HTTPClient
	timeout  time.Duration
	interval time.Duration
	attempts uint
	delay    time.Duration
	cache    *otter.Cache[string, Coordinates]
	log      logger.Logger

	mu       sync.Mutex
	watchers map[uint64]ipWatcher
	nextID   uint64
	stopPoll context.CancelFunc
	last     *Coordinates
	lastErr  error
}

type ipWatcher struct {
	onUpdate func(Coordinates)
	onError  func(error)
}

// NewIPSource creates an IPSource with defaults filled in.
func NewIPSource(opts IPOptions) *IPSource {
	if opts.URL == "" {
		opts.URL = DefaultIPURL
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 15 * time.Minute
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &IPSource{
		url:      opts.URL,
		client:   opts.Client,
		timeout:  opts.Timeout,
		interval: opts.PollInterval,
		attempts: opts.Attempts,
		delay:    opts.RetryDelay,
		cache: otter.Must(&otter.Options[string, Coordinates]{
			MaximumSize:      16,
			ExpiryCalculator: otter.ExpiryWriting[string, Coordinates](opts.CacheTTL),
		}),
		log:      logger.OrNop(opts.Logger),
		watchers: make(map[uint64]ipWatcher),
	}
}

// ipLocation accepts both the ipapi.co (latitude/longitude) and the
// ip-api.com (lat/lon, status/message) response shapes.
type ipLocation struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

func (l ipLocation) coordinates() (Coordinates, error) {
	if l.Error || l.Status == "fail" {
		reason := l.Reason
		if reason == "" {
			reason = l.Message
		}
		return Coordinates{}, NewPositionError(PositionUnavailable, errors.New(reason))
	}
	lat, lng := l.Latitude, l.Longitude
	if lat == nil {
		lat = l.Lat
	}
	if lng == nil {
		lng = l.Lon
	}
	if lat == nil || lng == nil {
		return Coordinates{}, NewPositionError(PositionUnavailable, errors.New("response has no coordinates"))
	}
	return Coordinates{Latitude: *lat, Longitude: *lng}, nil
}

// Current returns the cached position or fetches a fresh one.
func (s *IPSource) Current(ctx context.Context) (Coordinates, error) {
	if c, ok := s.cache.GetIfPresent(s.url); ok {
		return c, nil
	}
	c, err := s.fetch(ctx)
	if err != nil {
		return Coordinates{}, err
	}
	s.cache.Set(s.url, c)
	return c, nil
}

// Invalidate drops the cached position.
func (s *IPSource) Invalidate() {
	s.cache.Invalidate(s.url)
}

func (s *IPSource) fetch(ctx context.Context) (Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var loc ipLocation
	var lastErr error
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
			if err != nil {
				lastErr = err
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")
			resp, err := s.client.Do(req)
			if err != nil {
				lastErr = err
				return err
			}
			defer resp.Body.Close()
			switch {
			case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
				lastErr = NewPositionError(PermissionDenied, fmt.Errorf("HTTP %d", resp.StatusCode))
				return retry.Unrecoverable(lastErr)
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
				return lastErr
			case resp.StatusCode != http.StatusOK:
				lastErr = NewPositionError(PositionUnavailable, fmt.Errorf("HTTP %d", resp.StatusCode))
				return retry.Unrecoverable(lastErr)
			}
			loc = ipLocation{}
			if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
				lastErr = fmt.Errorf("decode response: %w", err)
				return retry.Unrecoverable(lastErr)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.OnRetry(func(n uint, err error) {
			s.log.Warning("geo: retrying %s (attempt %d): %v", s.url, n+1, err)
		}),
	)
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return Coordinates{}, AsPositionError(lastErr)
	}
	return loc.coordinates()
}

// Watch registers callbacks for the shared poller, which asks the service
// every PollInterval. The first watcher starts it and the last Clear stops
// it. A watcher joining a running poller gets the latest result right away.
func (s *IPSource) Watch(onUpdate func(Coordinates), onError func(error)) (Watch, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ipWatcher{onUpdate: onUpdate, onError: onError}
	if s.stopPoll == nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopPoll = cancel
		go s.poll(ctx)
	}
	last, lastErr := s.last, s.lastErr
	s.mu.Unlock()

	switch {
	case last != nil:
		onUpdate(*last)
	case lastErr != nil:
		onError(lastErr)
	}
	return watchFunc(func() { s.unwatch(id) }), nil
}

func (s *IPSource) unwatch(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watchers[id]; !ok {
		return
	}
	delete(s.watchers, id)
	if len(s.watchers) == 0 && s.stopPoll != nil {
		s.stopPoll()
		s.stopPoll = nil
		s.last, s.lastErr = nil, nil
	}
}

// poll fetches once per tick and fans the result out to every watcher.
func (s *IPSource) poll(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		c, err := s.Current(ctx)

		s.mu.Lock()
		if ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		if err != nil {
			s.last, s.lastErr = nil, err
		} else {
			s.last, s.lastErr = &c, nil
		}
		watchers := make([]ipWatcher, 0, len(s.watchers))
		for _, w := range s.watchers {
			watchers = append(watchers, w)
		}
		s.mu.Unlock()

		for _, w := range watchers {
			if err != nil {
				w.onError(err)
			} else {
				w.onUpdate(c)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// polls always ask the service again
			s.Invalidate()
		}
	}
}

var _ Source = (*IPSource)(nil)

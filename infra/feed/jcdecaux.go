package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/core/planner"
	"github.com/kilianp07/rebalance/infra/logger"
)

// DefaultJCDecauxURL is the public stations endpoint.
const DefaultJCDecauxURL = "https://api.jcdecaux.com/vls/v1/stations"

// JCDecauxConfig configures the real-time feed.
type JCDecauxConfig struct {
	URL            string `json:"url"`
	APIKey         string `json:"api_key"`
	Contract       string `json:"contract"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxRetries     int    `json:"max_retries"`
}

// SetDefaults fills zero values.
func (c *JCDecauxConfig) SetDefaults() {
	if c.URL == "" {
		c.URL = DefaultJCDecauxURL
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// Validate checks mandatory fields.
func (c JCDecauxConfig) Validate() error {
	if c.APIKey == "" || c.Contract == "" {
		return fmt.Errorf("jcdecaux feed: api_key and contract are required")
	}
	if c.TimeoutSeconds < 0 || c.MaxRetries < 0 {
		return fmt.Errorf("jcdecaux feed: timeout_seconds and max_retries must be >= 0")
	}
	return nil
}

// JCDecauxFeed fetches stations from the JCDecaux API.
type JCDecauxFeed struct {
	cfg      JCDecauxConfig
	client   *http.Client
	log      logger.Logger
	endpoint string
	backoff  func() backoff.BackOff
}

// NewJCDecauxFeed validates the config and returns a feed.
func NewJCDecauxFeed(cfg JCDecauxConfig) (*JCDecauxFeed, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("jcdecaux feed: %w", err)
	}
	q := u.Query()
	q.Set("contract", cfg.Contract)
	q.Set("apiKey", cfg.APIKey)
	u.RawQuery = q.Encode()
	return &JCDecauxFeed{
		cfg:      cfg,
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:      logger.New("jcdecaux-feed"),
		endpoint: u.String(),
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}, nil
}

// Fetch returns the current snapshot. Network errors, 429 and 5xx responses
// are retried; other statuses fail immediately.
func (f *JCDecauxFeed) Fetch(ctx context.Context) ([]model.Station, error) {
	var stations []model.Station
	attempt := 0
	op := func() error {
		attempt++
		s, err := f.fetchOnce(ctx)
		if err != nil {
			f.log.Warnf("fetch attempt %d for contract %s failed: %v", attempt, f.cfg.Contract, err)
			return err
		}
		stations = s
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(f.backoff(), uint64(f.cfg.MaxRetries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	f.log.Infof("fetched %d stations for contract %s", len(stations), f.cfg.Contract)
	return stations, nil
}

// statusError is returned for non-200 responses.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("jcdecaux: unexpected status %d: %s", e.code, e.body)
}

func (f *JCDecauxFeed) fetchOnce(ctx context.Context) ([]model.Station, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		serr := &statusError{code: resp.StatusCode, body: string(body)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, serr
		}
		return nil, backoff.Permanent(serr)
	}
	stations, err := DecodeStations(resp.Body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return stations, nil
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, code int) bool {
	var serr *statusError
	return errors.As(err, &serr) && serr.code == code
}

func init() {
	_ = planner.RegisterFeed("jcdecaux", func(conf map[string]any) (planner.StationFeed, error) {
		var c JCDecauxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewJCDecauxFeed(c)
	})
}

package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"KOLStats/internal/domain/models"
	domrepo "KOLStats/internal/domain/repository"
	xhttp "KOLStats/pkg/http"
	applogger "KOLStats/pkg/logger"
)

// BreakerConfig trips the breaker after MaxFailures consecutive failures for OpenTimeout.
type BreakerConfig struct {
	Enabled     bool
	MaxFailures uint32
	OpenTimeout time.Duration
	HalfOpenMax uint32
}

// Client is a StatsSource backed by the statistics backend's HTTP API.
type Client struct {
	baseURL string
	http    *xhttp.Client
	cb      *gobreaker.CircuitBreaker
	l       *applogger.Logger
}

type Option func(*Client)

func WithHTTPClient(c *xhttp.Client) Option { return func(cl *Client) { cl.http = c } }

func WithLogger(l *applogger.Logger) Option { return func(cl *Client) { cl.l = l } }

// WithBreaker wraps every fetch in a circuit breaker. A disabled config is a no-op.
func WithBreaker(cfg BreakerConfig) Option {
	return func(cl *Client) {
		if !cfg.Enabled {
			return
		}
		maxFailures := cfg.MaxFailures
		if maxFailures == 0 {
			maxFailures = 5
		}
		cl.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "upstream-stats",
			MaxRequests: cfg.HalfOpenMax,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= maxFailures },
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, domrepo.ErrChannelNotFound) || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				if cl.l != nil {
					cl.l.Warn("circuit breaker state changed",
						applogger.String("breaker", name),
						applogger.String("from", from.String()),
						applogger.String("to", to.String()))
				}
			},
		})
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream base url %q", baseURL)
	}
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient()
	}
	return c, nil
}

// FetchChannelStats loads GET {base}/channels/{id}/stats.
func (c *Client) FetchChannelStats(ctx context.Context, channelID string) (*models.ChannelStats, error) {
	if c.cb == nil {
		return c.fetch(ctx, channelID)
	}
	v, err := c.cb.Execute(func() (interface{}, error) { return c.fetch(ctx, channelID) })
	if err != nil {
		return nil, err
	}
	return v.(*models.ChannelStats), nil
}

func (c *Client) fetch(ctx context.Context, channelID string) (*models.ChannelStats, error) {
	var stats models.ChannelStats
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: http.MethodGet,
		URL:    c.baseURL + "/channels/" + url.PathEscape(channelID) + "/stats",
	}, &stats)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("channel %s: %w", channelID, domrepo.ErrChannelNotFound)
		}
		return nil, fmt.Errorf("fetch channel stats %s: %w", channelID, err)
	}
	if stats.ChannelID == "" {
		stats.ChannelID = channelID
	}
	if stats.FetchedAt.IsZero() {
		stats.FetchedAt = time.Now().UTC()
	}
	return &stats, nil
}

var _ domrepo.StatsSource = (*Client)(nil)

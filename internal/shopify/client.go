// Package shopify fetches the product catalog from the Shopify Admin REST API.
package shopify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/agenthands/compat/internal/core/model"
)

const accessTokenHeader = "X-Shopify-Access-Token"

type Config struct {
	StoreDomain string
	AccessToken string
	APIVersion  string
	// PageSize is the products per request, at most 250.
	PageSize          int
	RequestsPerSecond float64
	// MaxRetries bounds retries per page after the first attempt.
	MaxRetries uint
	Timeout    time.Duration
	// RetryInterval is the first backoff delay. Zero keeps the backoff default.
	RetryInterval time.Duration
	// BaseURL replaces https://{StoreDomain}, for tests and proxies.
	BaseURL string
}

// StatusError is a non-2xx answer from the Admin API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("shopify: unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        Config
	baseURL    string
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, errors.New("shopify: access token is required")
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		if cfg.StoreDomain == "" {
			return nil, errors.New("shopify: store domain is required")
		}
		base = "https://" + cfg.StoreDomain
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-10"
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 250 {
		cfg.PageSize = 250
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cfg:        cfg,
		baseURL:    base,
		logger:     logger,
	}, nil
}

// FetchProducts walks every page of /products.json and returns the whole catalog.
func (c *Client) FetchProducts(ctx context.Context) ([]model.Product, error) {
	next := fmt.Sprintf("%s/admin/api/%s/products.json?limit=%d", c.baseURL, c.cfg.APIVersion, c.cfg.PageSize)

	products := []model.Product{}
	for pages := 1; next != ""; pages++ {
		page, link, err := c.fetchPage(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("shopify: page %d: %w", pages, err)
		}
		products = append(products, page...)
		next = nextPageURL(link)
		c.logger.Debug("fetched product page", "page", pages, "products", len(page))
	}
	return products, nil
}

// fetchPage retries throttled and server errors with exponential backoff,
// honouring Retry-After when the API sends one.
func (c *Client) fetchPage(ctx context.Context, url string) ([]model.Product, string, error) {
	backoffCfg := backoff.NewExponentialBackOff()
	if c.cfg.RetryInterval > 0 {
		backoffCfg.InitialInterval = c.cfg.RetryInterval
	}

	for attempt := uint(0); ; attempt++ {
		products, link, wait, err := c.doPage(ctx, url)
		if err == nil {
			return products, link, nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			return nil, "", err
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		if attempt >= c.cfg.MaxRetries {
			return nil, "", err
		}

		sleep := wait
		if sleep <= 0 {
			sleep = backoffCfg.NextBackOff()
			if sleep == backoff.Stop {
				return nil, "", err
			}
		}
		c.logger.Warn("retrying product page", "attempt", attempt+1, "wait", sleep, "error", err)

		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// doPage performs one request. wait is the server's Retry-After, if any.
func (c *Client) doPage(ctx context.Context, url string) (products []model.Product, link string, wait time.Duration, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", 0, err
	}
	req.Header.Set(accessTokenHeader, c.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", retryAfter(resp.Header.Get("Retry-After")), &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var payload productsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, "", 0, fmt.Errorf("decode products: %w", err)
	}

	products = make([]model.Product, 0, len(payload.Products))
	for _, p := range payload.Products {
		products = append(products, p.toModel())
	}
	return products, resp.Header.Get("Link"), 0, nil
}

// retryAfter parses a Retry-After value in seconds; Shopify sends fractions like "2.0".
func retryAfter(v string) time.Duration {
	secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// nextPageURL extracts the rel="next" target from a Link header.
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, attr := range segments[1:] {
			if strings.ReplaceAll(strings.TrimSpace(attr), " ", "") == `rel="next"` {
				return strings.TrimSuffix(strings.TrimPrefix(target, "<"), ">")
			}
		}
	}
	return ""
}

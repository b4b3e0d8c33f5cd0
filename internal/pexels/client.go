// Package pexels talks to the Pexels photo search API and downloads the
// images it links to.
package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"doacoes/internal"
	"doacoes/internal/config"
	"doacoes/internal/logger"
)

var (
	ErrRateLimited   = errors.New("pexels: rate limited")
	ErrTimeout       = errors.New("pexels: request timed out")
	ErrMissingAPIKey = errors.New("missing PEXELS_API_KEY")
	ErrTooLarge      = errors.New("pexels: image exceeds size limit")
)

// StatusError is a non-2xx answer other than 429.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pexels status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	limiter       *RateLimiter
	searchTimeout time.Duration
	maxAttempts   int
	backoffBase   time.Duration
	maxBytes      int64
	log           *zap.Logger
}

type Download struct {
	Data        []byte
	ContentType string
}

type searchResponse struct {
	Photos []struct {
		ID           int64  `json:"id"`
		Alt          string `json:"alt"`
		Photographer string `json:"photographer"`
		Src          struct {
			Medium string `json:"medium"`
			Large  string `json:"large"`
		} `json:"src"`
		SrcLarge string `json:"src_large"`
	} `json:"photos"`
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL:       cfg.PexelsAPIBaseURL,
		apiKey:        cfg.PexelsAPIKey,
		httpClient:    &http.Client{Timeout: time.Duration(cfg.DownloadTimeoutMs) * time.Millisecond},
		limiter:       NewRateLimiter(cfg.PexelsRateLimitRPS),
		searchTimeout: time.Duration(cfg.PexelsTimeoutMs) * time.Millisecond,
		maxAttempts:   3,
		backoffBase:   250 * time.Millisecond,
		maxBytes:      cfg.PhotoMaxBytes,
		log:           logger.OrNop(log),
	}
}

// Search runs a photo search bounded by the configured search timeout.
// Missing fields in the answer come back as empty strings.
func (c *Client) Search(ctx context.Context, query string, perPage int) ([]internal.Photo, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	u, err := url.Parse(strings.TrimRight(c.baseURL, "/") + "/search")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("per_page", strconv.Itoa(perPage))
	u.RawQuery = q.Encode()

	if c.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.searchTimeout)
		defer cancel()
	}

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode pexels search: %w", err)
	}

	photos := make([]internal.Photo, 0, len(payload.Photos))
	for _, p := range payload.Photos {
		large := p.Src.Large
		if large == "" {
			large = p.SrcLarge
		}
		photos = append(photos, internal.Photo{
			ID:           p.ID,
			Src:          p.Src.Medium,
			SrcLarge:     large,
			Alt:          p.Alt,
			Photographer: p.Photographer,
		})
	}
	c.log.Debug("pexels search", zap.String("query", query), zap.Int("results", len(photos)))
	return photos, nil
}

// Download fetches an image. The content type defaults to image/jpeg when
// the server does not declare one.
func (c *Client) Download(ctx context.Context, rawURL string) (Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Download{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Download{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Download{}, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	reader := io.Reader(resp.Body)
	if c.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, c.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return Download{}, classifyTransportError(err)
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return Download{}, ErrTooLarge
	}

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return Download{Data: data, ContentType: contentType}, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, classifyTransportError(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = classifyTransportError(err)
			if errors.Is(lastErr, ErrTimeout) || ctx.Err() != nil {
				return nil, lastErr
			}
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = classifyTransportError(readErr)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status=%d", ErrRateLimited, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
			if isRetryableStatus(resp.StatusCode) && attempt < c.maxAttempts {
				c.log.Debug("pexels retry", zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt))
				if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
					return nil, sleepErr
				}
				continue
			}
			return nil, lastErr
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("pexels request failed")
	}
	return nil, lastErr
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	if c.backoffBase <= 0 {
		return nil
	}
	backoff := c.backoffBase*time.Duration(1<<(attempt-1)) + time.Duration(rand.Intn(100))*time.Millisecond
	select {
	case <-ctx.Done():
		return classifyTransportError(ctx.Err())
	case <-time.After(backoff):
		return nil
	}
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func isRetryableStatus(status int) bool {
	switch status {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

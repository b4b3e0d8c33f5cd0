package pexels

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doacoes/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func testClient(rt roundTripFunc) *Client {
	client := NewClient(config.Config{
		PexelsAPIBaseURL:   "https://api.example.test/v1",
		PexelsAPIKey:       "test-key",
		PexelsRateLimitRPS: 1000,
		PexelsTimeoutMs:    10000,
		DownloadTimeoutMs:  10000,
		PhotoMaxBytes:      1024,
	}, nil)
	client.backoffBase = 0
	client.httpClient = &http.Client{Transport: rt}
	return client
}

func TestSearchMapsPhotos(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "cadeira escolar", r.URL.Query().Get("query"))
		assert.Equal(t, "3", r.URL.Query().Get("per_page"))
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		return jsonResponse(http.StatusOK, `{"photos":[
			{"id":1,"alt":"Cadeira","photographer":"Ana","src":{"medium":"https://images.pexels.com/1-m.jpg","large":"https://images.pexels.com/1-l.jpg"}},
			{"id":2,"src_large":"https://images.pexels.com/2-l.jpg"}
		]}`), nil
	})

	photos, err := client.Search(context.Background(), "cadeira escolar", 3)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, int64(1), photos[0].ID)
	assert.Equal(t, "https://images.pexels.com/1-m.jpg", photos[0].Src)
	assert.Equal(t, "https://images.pexels.com/1-l.jpg", photos[0].SrcLarge)
	assert.Equal(t, "Ana", photos[0].Photographer)
	assert.Equal(t, "", photos[1].Src)
	assert.Equal(t, "", photos[1].Alt)
	assert.Equal(t, "https://images.pexels.com/2-l.jpg", photos[1].SrcLarge)
}

func TestSearchRateLimitedIsNotRetried(t *testing.T) {
	calls := 0
	client := testClient(func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusTooManyRequests, `{}`), nil
	})

	_, err := client.Search(context.Background(), "mesa", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, 1, calls)
}

func TestSearchRetriesServerErrors(t *testing.T) {
	calls := 0
	client := testClient(func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return jsonResponse(http.StatusBadGateway, `bad gateway`), nil
		}
		return jsonResponse(http.StatusOK, `{"photos":[]}`), nil
	})

	photos, err := client.Search(context.Background(), "mesa", 3)
	require.NoError(t, err)
	assert.Empty(t, photos)
	assert.Equal(t, 2, calls)
}

func TestSearchClientErrorIsStatusError(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"error":"bad key"}`), nil
	})

	_, err := client.Search(context.Background(), "mesa", 3)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.False(t, errors.Is(err, ErrRateLimited))
}

func TestSearchTimeout(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	})
	client.searchTimeout = 20 * time.Millisecond

	_, err := client.Search(context.Background(), "mesa", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestSearchMissingKey(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	client.apiKey = ""

	_, err := client.Search(context.Background(), "mesa", 3)
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestDownload(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		assert.Empty(t, r.Header.Get("Authorization"))
		resp := jsonResponse(http.StatusOK, "PNGDATA")
		resp.Header.Set("Content-Type", "image/png")
		return resp, nil
	})

	dl, err := client.Download(context.Background(), "https://images.pexels.com/photos/1/large.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), dl.Data)
	assert.Equal(t, "image/png", dl.ContentType)
}

func TestDownloadDefaultsContentType(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, "JPEG"), nil
	})

	dl, err := client.Download(context.Background(), "https://images.pexels.com/photos/1/large.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", dl.ContentType)
}

func TestDownloadErrors(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, "missing"), nil
	})
	_, err := client.Download(context.Background(), "https://images.pexels.com/x.jpg")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)

	client = testClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, strings.Repeat("x", 2048)), nil
	})
	_, err = client.Download(context.Background(), "https://images.pexels.com/x.jpg")
	assert.True(t, errors.Is(err, ErrTooLarge))
}

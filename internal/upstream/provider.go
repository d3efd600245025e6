// Package upstream implements the client for the remote heatmap tile
// provider. The provider is rate-limited and slow (hundreds of milliseconds
// to tens of seconds per tile), so every call runs under a bounded timeout
// and behind a circuit breaker. The client never retries on its own: a failed
// fetch is surfaced immediately and the next client request re-attempts.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// ErrUnavailable indicates the upstream provider failed, timed out, or is
// being short-circuited by the breaker. Callers must not cache anything on
// this error.
var ErrUnavailable = errors.New("upstream tile provider unavailable")

// maxTileBytes caps how much of an upstream response body is read. Heatmap
// tiles are small PNGs; anything larger is a misbehaving upstream.
const maxTileBytes = 4 << 20

// TileRequest identifies one tile to fetch.
type TileRequest struct {
	DataType    string
	HeatmapType string
	Zoom        int
	X           int
	Y           int
}

// TileResult is a successfully fetched tile payload.
type TileResult struct {
	Payload     []byte
	ContentType string
}

// Provider fetches tile imagery from a remote source. Implementations must
// honor ctx for cancellation and return an error wrapping ErrUnavailable on
// any failure.
type Provider interface {
	FetchTile(ctx context.Context, req TileRequest) (*TileResult, error)
}

// HTTPProvider is the production Provider speaking plain HTTP to the tile
// service at BaseURL. Safe for concurrent use.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPProvider constructs an HTTPProvider with the given base URL and
// per-call timeout. The breaker opens after repeated consecutive failures so
// a dead upstream fails fast instead of tying up request handlers for the
// full timeout.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "tile-upstream",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("upstream circuit breaker state change")
		},
	})
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: cb,
	}
}

// FetchTile retrieves one tile. Non-2xx statuses, transport errors, timeouts,
// and an open breaker all surface as errors wrapping ErrUnavailable.
func (p *HTTPProvider) FetchTile(ctx context.Context, req TileRequest) (*TileResult, error) {
	url := fmt.Sprintf("%s/%s/%s/%d/%d/%d",
		p.baseURL, req.DataType, req.HeatmapType, req.Zoom, req.X, req.Y)

	result, err := p.breaker.Execute(func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.client.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxTileBytes))
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		payload, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
		if err != nil {
			return nil, err
		}
		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return &TileResult{Payload: payload, ContentType: contentType}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tile, ok := result.(*TileResult)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected breaker result type", ErrUnavailable)
	}
	return tile, nil
}

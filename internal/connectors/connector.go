// Package connectors integrates external job boards and normalizes their
// listings so detected application URLs can be fed into batch runs.
package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/form-autopilot/internal/circuitbreaker"
	"github.com/form-autopilot/internal/config"
	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/retry"
	"github.com/form-autopilot/internal/types"
)

// Connector is the interface every job board integration implements
type Connector interface {
	// Source returns the board identifier
	Source() types.JobSource
	// Search returns one page of normalized listings matching the query
	Search(ctx context.Context, query *models.JobSearchQuery) (*models.JobSearchResult, error)
	// GetJob returns a single listing with its description, or nil when the
	// board has no such job.
	GetJob(ctx context.Context, jobID string) (*models.JobListing, error)
	// Close releases connector resources
	Close() error
}

// Registry holds the configured connectors keyed by source
type Registry struct {
	connectors map[types.JobSource]Connector
}

// NewRegistry builds a registry with all supported job boards. Each board
// gets its own limiter: a burst against one board must not throttle
// requests to the others.
func NewRegistry(cfg config.ConnectorsConfig) *Registry {
	newLimiter := func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Registry{
		connectors: map[types.JobSource]Connector{
			types.SourceBundesagentur: NewBundesagentur(cfg, newLimiter()),
			types.SourceRemotive:      NewRemotive(cfg, newLimiter()),
			types.SourceRemoteOK:      NewRemoteOK(cfg, newLimiter()),
		},
	}
}

// Get returns the connector for a source
func (r *Registry) Get(source types.JobSource) (Connector, error) {
	c, ok := r.connectors[source]
	if !ok {
		return nil, fmt.Errorf("unsupported job source: %s", source)
	}
	return c, nil
}

// Sources lists the registered sources
func (r *Registry) Sources() []types.JobSource {
	sources := make([]types.JobSource, 0, len(r.connectors))
	for s := range r.connectors {
		sources = append(sources, s)
	}
	return sources
}

// Close closes every registered connector
func (r *Registry) Close() error {
	var firstErr error
	for _, c := range r.connectors {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// normalizeQuery applies pagination defaults shared by all boards
func normalizeQuery(query *models.JobSearchQuery) *models.JobSearchQuery {
	q := *query
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 25
	}
	return &q
}

// errNotFound flags a 404 from a board so GetJob can report (nil, nil)
var errNotFound = errors.New("job not found")

// fetchRetryConfig governs retries of board requests. Boards throttle and
// flake; transient failures get a short backoff before giving up.
var fetchRetryConfig = &retry.Config{
	MaxAttempts:  3,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2.0,
}

// fetchJSON issues a rate-limited GET under the board's circuit breaker and
// decodes the response into dest. Network errors, 5xx and 429 responses are
// retried with exponential backoff; other failures stop immediately. A 404
// surfaces as errNotFound. An open breaker fails fast without touching the
// network.
func fetchJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, breaker *circuitbreaker.CircuitBreaker, rawURL string, headers map[string]string, dest interface{}) error {
	var fetchErr error
	err := breaker.Execute(ctx, func() error {
		fetchErr = fetchJSONOnce(ctx, client, limiter, rawURL, headers, dest)
		if isNotFound(fetchErr) {
			// A missing job is a healthy response, not a board failure.
			return nil
		}
		return fetchErr
	})
	if err != nil {
		return err
	}
	return fetchErr
}

func fetchJSONOnce(ctx context.Context, client *http.Client, limiter *rate.Limiter, rawURL string, headers map[string]string, dest interface{}) error {
	result := retry.WithExponentialBackoff(ctx, fetchRetryConfig, func(ctx context.Context, _ int) error {
		if err := limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return retry.Permanent(errNotFound)
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
		case resp.StatusCode != http.StatusOK:
			return retry.Permanent(fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL))
		}

		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return retry.Permanent(fmt.Errorf("failed to decode response from %s: %w", rawURL, err))
		}
		return nil
	})

	if !result.Success {
		return result.LastError
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

// extractString returns the first non-empty string value among the keys
func extractString(data map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// paginateListings slices one page out of a client-side filtered list.
// Boards without server-side pagination (Remotive, RemoteOK) return full
// dumps that are paged here.
func paginateListings(jobs []models.JobListing, page, pageSize int) []models.JobListing {
	start := (page - 1) * pageSize
	if start >= len(jobs) {
		return nil
	}
	end := start + pageSize
	if end > len(jobs) {
		end = len(jobs)
	}
	return jobs[start:end]
}

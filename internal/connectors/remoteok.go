package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/form-autopilot/internal/circuitbreaker"
	"github.com/form-autopilot/internal/config"
	apperrors "github.com/form-autopilot/internal/errors"
	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/types"
)

// RemoteOK queries the RemoteOK API. The endpoint returns the whole board
// as one array whose first element is a legal notice, so filtering and
// pagination are entirely client-side.
type RemoteOK struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
}

// NewRemoteOK creates a RemoteOK connector
func NewRemoteOK(cfg config.ConnectorsConfig, limiter *rate.Limiter) *RemoteOK {
	return &RemoteOK{
		baseURL: cfg.RemoteOKURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig(string(types.SourceRemoteOK))),
	}
}

// Source returns the board identifier
func (r *RemoteOK) Source() types.JobSource {
	return types.SourceRemoteOK
}

// Close releases connector resources
func (r *RemoteOK) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

type remoteOKJob struct {
	ID          json.Number `json:"id"`
	Position    string      `json:"position"`
	Company     string      `json:"company"`
	Location    string      `json:"location"`
	Tags        []string    `json:"tags"`
	URL         string      `json:"url"`
	Epoch       json.Number `json:"epoch"`
	Description string      `json:"description"`
}

// Search fetches the board and filters by the query terms
func (r *RemoteOK) Search(ctx context.Context, query *models.JobSearchQuery) (*models.JobSearchResult, error) {
	q := normalizeQuery(query)

	entries, err := r.fetch(ctx)
	if err != nil {
		return nil, apperrors.NewConnectorError(string(r.Source()), err)
	}

	var jobs []models.JobListing
	for _, job := range entries {
		if q.What != "" && !r.matchesSearch(job, q.What) {
			continue
		}
		if q.Where != "" && !strings.Contains(strings.ToLower(job.Location), strings.ToLower(q.Where)) {
			continue
		}
		jobs = append(jobs, r.parseJob(job, false))
	}

	return &models.JobSearchResult{
		Jobs:       paginateListings(jobs, q.Page, q.PageSize),
		TotalCount: len(jobs),
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, nil
}

// GetJob scans the board for an ID; RemoteOK has no per-job endpoint
func (r *RemoteOK) GetJob(ctx context.Context, jobID string) (*models.JobListing, error) {
	entries, err := r.fetch(ctx)
	if err != nil {
		return nil, apperrors.NewConnectorError(string(r.Source()), err)
	}

	for _, job := range entries {
		if job.ID.String() == jobID {
			listing := r.parseJob(job, true)
			return &listing, nil
		}
	}
	return nil, nil
}

func (r *RemoteOK) fetch(ctx context.Context) ([]remoteOKJob, error) {
	// Decode loosely: the first array element is a legal notice object
	// without an id and gets dropped below.
	var rawEntries []json.RawMessage
	if err := fetchJSON(ctx, r.client, r.limiter, r.breaker, r.baseURL, nil, &rawEntries); err != nil {
		return nil, err
	}

	var jobs []remoteOKJob
	for _, raw := range rawEntries {
		var job remoteOKJob
		if err := json.Unmarshal(raw, &job); err != nil {
			continue
		}
		if job.ID.String() == "" {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (r *RemoteOK) matchesSearch(job remoteOKJob, term string) bool {
	term = strings.ToLower(term)
	if strings.Contains(strings.ToLower(job.Position), term) {
		return true
	}
	if strings.Contains(strings.ToLower(job.Company), term) {
		return true
	}
	return strings.Contains(strings.ToLower(strings.Join(job.Tags, " ")), term)
}

func (r *RemoteOK) parseJob(job remoteOKJob, withDescription bool) models.JobListing {
	listing := models.JobListing{
		ExternalID:  job.ID.String(),
		Source:      r.Source(),
		Title:       job.Position,
		CompanyName: job.Company,
		Location:    job.Location,
		URL:         job.URL,
	}
	if listing.Location == "" {
		listing.Location = "Remote"
	}
	if listing.URL == "" {
		listing.URL = fmt.Sprintf("https://remoteok.com/jobs/%s", job.ID.String())
	}
	if epoch, err := job.Epoch.Int64(); err == nil && epoch > 0 {
		t := time.Unix(epoch, 0).UTC()
		listing.PostedAt = &t
	}
	if withDescription {
		listing.Description = job.Description
	}
	return listing
}

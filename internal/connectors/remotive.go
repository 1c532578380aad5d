package connectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/form-autopilot/internal/circuitbreaker"
	"github.com/form-autopilot/internal/config"
	apperrors "github.com/form-autopilot/internal/errors"
	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/types"
)

// Remotive queries the Remotive remote-jobs API. No authentication is
// required; location filtering and pagination happen client-side since
// the API returns the full listing set.
type Remotive struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
}

// NewRemotive creates a Remotive connector
func NewRemotive(cfg config.ConnectorsConfig, limiter *rate.Limiter) *Remotive {
	return &Remotive{
		baseURL: cfg.RemotiveURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig(string(types.SourceRemotive))),
	}
}

// Source returns the board identifier
func (r *Remotive) Source() types.JobSource {
	return types.SourceRemotive
}

// Close releases connector resources
func (r *Remotive) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

type remotiveResponse struct {
	Jobs []remotiveJob `json:"jobs"`
}

type remotiveJob struct {
	ID                        json.Number `json:"id"`
	Title                     string      `json:"title"`
	CompanyName               string      `json:"company_name"`
	CandidateRequiredLocation string      `json:"candidate_required_location"`
	URL                       string      `json:"url"`
	PublicationDate           string      `json:"publication_date"`
	Description               string      `json:"description"`
}

// Search fetches listings, applies the query terms, and pages the result
func (r *Remotive) Search(ctx context.Context, query *models.JobSearchQuery) (*models.JobSearchResult, error) {
	q := normalizeQuery(query)

	requestURL := r.baseURL
	if q.What != "" {
		requestURL += "?search=" + url.QueryEscape(q.What)
	}

	payload, err := r.fetch(ctx, requestURL)
	if err != nil {
		return nil, apperrors.NewConnectorError(string(r.Source()), err)
	}

	var jobs []models.JobListing
	for _, job := range payload.Jobs {
		if q.Where != "" && !strings.Contains(strings.ToLower(job.CandidateRequiredLocation), strings.ToLower(q.Where)) {
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

// GetJob scans the full listing set for an ID; Remotive has no per-job
// endpoint.
func (r *Remotive) GetJob(ctx context.Context, jobID string) (*models.JobListing, error) {
	payload, err := r.fetch(ctx, r.baseURL)
	if err != nil {
		return nil, apperrors.NewConnectorError(string(r.Source()), err)
	}

	for _, job := range payload.Jobs {
		if job.ID.String() == jobID {
			listing := r.parseJob(job, true)
			return &listing, nil
		}
	}
	return nil, nil
}

func (r *Remotive) fetch(ctx context.Context, requestURL string) (*remotiveResponse, error) {
	var payload remotiveResponse
	if err := fetchJSON(ctx, r.client, r.limiter, r.breaker, requestURL, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (r *Remotive) parseJob(job remotiveJob, withDescription bool) models.JobListing {
	listing := models.JobListing{
		ExternalID:  job.ID.String(),
		Source:      r.Source(),
		Title:       job.Title,
		CompanyName: job.CompanyName,
		Location:    job.CandidateRequiredLocation,
		URL:         job.URL,
	}
	if listing.Location == "" {
		listing.Location = "Worldwide"
	}
	if job.PublicationDate != "" {
		if t, err := time.Parse(time.RFC3339, job.PublicationDate); err == nil {
			listing.PostedAt = &t
		} else if t, err := time.Parse("2006-01-02T15:04:05", job.PublicationDate); err == nil {
			listing.PostedAt = &t
		}
	}
	if withDescription {
		listing.Description = job.Description
	}
	return listing
}

package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/form-autopilot/internal/circuitbreaker"
	"github.com/form-autopilot/internal/config"
	apperrors "github.com/form-autopilot/internal/errors"
	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/types"
)

// Bundesagentur queries the Bundesagentur für Arbeit job search API.
// API documentation: https://jobsuche.api.bund.dev/
// The API key is a public client identifier, not a secret.
type Bundesagentur struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
}

// NewBundesagentur creates a Bundesagentur connector
func NewBundesagentur(cfg config.ConnectorsConfig, limiter *rate.Limiter) *Bundesagentur {
	return &Bundesagentur{
		apiKey:  cfg.BundesagenturAPIKey,
		baseURL: cfg.BundesagenturURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig(string(types.SourceBundesagentur))),
	}
}

// Source returns the board identifier
func (b *Bundesagentur) Source() types.JobSource {
	return types.SourceBundesagentur
}

// Close releases connector resources
func (b *Bundesagentur) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// baSearchResponse is the wire shape of the BA search endpoint
type baSearchResponse struct {
	Stellenangebote []map[string]interface{} `json:"stellenangebote"`
	MaxErgebnisse   json.Number              `json:"maxErgebnisse"`
}

// Search queries the BA job database. The API requires both 'was' (what)
// and 'wo' (where), so empty query terms get German-market defaults.
func (b *Bundesagentur) Search(ctx context.Context, query *models.JobSearchQuery) (*models.JobSearchResult, error) {
	q := normalizeQuery(query)

	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("size", strconv.Itoa(q.PageSize))
	if q.What != "" {
		params.Set("was", q.What)
	} else {
		params.Set("was", "Pflege")
	}
	if q.Where != "" {
		params.Set("wo", q.Where)
	} else {
		params.Set("wo", "Deutschland")
	}
	if q.RadiusKm > 0 && q.Where != "" {
		params.Set("umkreis", strconv.Itoa(q.RadiusKm))
	}

	var payload baSearchResponse
	if err := b.getJSON(ctx, b.baseURL+"?"+params.Encode(), &payload); err != nil {
		return nil, apperrors.NewConnectorError(string(b.Source()), err)
	}

	jobs := make([]models.JobListing, 0, len(payload.Stellenangebote))
	for _, raw := range payload.Stellenangebote {
		jobs = append(jobs, b.parseJob(raw))
	}

	total := len(jobs)
	if n, err := payload.MaxErgebnisse.Int64(); err == nil {
		total = int(n)
	}

	return &models.JobSearchResult{
		Jobs:       jobs,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, nil
}

// GetJob fetches one listing by its reference number
func (b *Bundesagentur) GetJob(ctx context.Context, jobID string) (*models.JobListing, error) {
	var raw map[string]interface{}
	err := b.getJSON(ctx, b.baseURL+"/"+url.PathEscape(jobID), &raw)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.NewConnectorError(string(b.Source()), err)
	}

	listing := b.parseJob(raw)
	listing.Description = extractString(raw, "stellenbeschreibung", "beschreibung", "details")
	return &listing, nil
}

func (b *Bundesagentur) getJSON(ctx context.Context, rawURL string, dest interface{}) error {
	return fetchJSON(ctx, b.client, b.limiter, b.breaker, rawURL, map[string]string{
		"X-API-Key": b.apiKey,
	}, dest)
}

// parseJob maps one BA payload entry into a normalized listing. The detail
// page URL is derived from the reference number since the API does not
// return one.
func (b *Bundesagentur) parseJob(data map[string]interface{}) models.JobListing {
	refNr := extractString(data, "refnr", "hashId")

	listing := models.JobListing{
		ExternalID:  refNr,
		Source:      b.Source(),
		Title:       extractString(data, "titel"),
		CompanyName: extractString(data, "arbeitgeber"),
		Location:    b.formatLocation(data),
		URL:         fmt.Sprintf("https://www.arbeitsagentur.de/jobsuche/jobdetail/%s", refNr),
		RawData:     data,
	}

	if dateStr := extractString(data, "eintrittsdatum"); dateStr != "" {
		if t, err := time.Parse("2006-01-02", dateStr); err == nil {
			listing.PostedAt = &t
		} else if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
			listing.PostedAt = &t
		}
	}
	return listing
}

func (b *Bundesagentur) formatLocation(data map[string]interface{}) string {
	arbeitsort, ok := data["arbeitsort"].(map[string]interface{})
	if !ok {
		return extractString(data, "arbeitsort")
	}

	location := ""
	if plz := extractString(arbeitsort, "plz"); plz != "" {
		location = plz + " "
	}
	location += extractString(arbeitsort, "ort")
	if region := extractString(arbeitsort, "region"); region != "" && region != extractString(arbeitsort, "ort") {
		location += ", " + region
	}
	return location
}

package models

import (
	"time"

	"github.com/form-autopilot/internal/types"
)

// JobListing represents a normalized job posting from any connector source
type JobListing struct {
	ExternalID  string                 `json:"externalId"`
	Source      types.JobSource        `json:"source"`
	Title       string                 `json:"title"`
	CompanyName string                 `json:"companyName"`
	Location    string                 `json:"location,omitempty"`
	URL         string                 `json:"url"`
	PostedAt    *time.Time             `json:"postedAt,omitempty"`
	Description string                 `json:"description,omitempty"`
	RawData     map[string]interface{} `json:"rawData,omitempty"`
}

// JobSearchQuery holds search parameters shared by all connectors
type JobSearchQuery struct {
	What     string `json:"what"`     // title or keywords
	Where    string `json:"where"`    // city, region, country
	RadiusKm int    `json:"radiusKm"` // search radius
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// JobSearchResult is a single page of normalized listings
type JobSearchResult struct {
	Jobs       []JobListing `json:"jobs"`
	TotalCount int          `json:"totalCount"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
}

// HasMore reports whether further pages are available
func (r *JobSearchResult) HasMore() bool {
	return r.Page*r.PageSize < r.TotalCount
}

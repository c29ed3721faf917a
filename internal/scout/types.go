package scout

import (
	"time"
)

// RunStatus represents the lifecycle state of a scrape run.
type RunStatus string

// Run status values persisted in the run store.
const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Parameter bounds enforced when a run is requested.
const (
	DefaultLocation   = "United States"
	DefaultMaxResults = 20
	MaxResultsCeiling = 100
)

// RunParameters captures the caller-supplied knobs for a single run.
type RunParameters struct {
	Query           string `json:"query"`
	Location        string `json:"location"`
	MaxResults      int    `json:"max_results" mapstructure:"max_results"`
	DetailedResults int    `json:"detailed_results" mapstructure:"detailed_results"`
}

// Normalize fills defaults and clamps values into their allowed ranges.
// An explicit zero MaxResults is preserved and yields an empty run; the
// default for an omitted value is applied at the API boundary, which is
// the only place that can tell absent from zero. The query itself is
// validated by the orchestrator, not here.
func (p RunParameters) Normalize() RunParameters {
	if p.Location == "" {
		p.Location = DefaultLocation
	}
	if p.MaxResults < 0 {
		p.MaxResults = 0
	}
	if p.MaxResults > MaxResultsCeiling {
		p.MaxResults = MaxResultsCeiling
	}
	if p.DetailedResults <= 0 || p.DetailedResults > p.MaxResults {
		p.DetailedResults = p.MaxResults
	}
	return p
}

// SearchString joins query and location into the string typed into the
// search box.
func (p RunParameters) SearchString() string {
	if p.Location == "" {
		return p.Query
	}
	return p.Query + " " + p.Location
}

// CandidateRef points at one discovered entity page prior to enrichment.
// Rank is 1-based and follows discovery order.
type CandidateRef struct {
	CanonicalURL string `json:"canonicalUrl"`
	Rank         int    `json:"rank"`
}

// RunResult is the object handed to the persistence layer after a run.
type RunResult struct {
	SearchString  string         `json:"searchString"`
	SearchURL     string         `json:"searchUrl"`
	TotalResults  int            `json:"totalResults"`
	DetailedCount int            `json:"detailedResults"`
	ScrapedAt     time.Time      `json:"scrapedAt"`
	Records       []EntityRecord `json:"records"`
}

// Run is the persisted metadata for one submitted run.
type Run struct {
	ID          string        `json:"id"`
	Params      RunParameters `json:"params"`
	Status      RunStatus     `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
	ErrorText   string        `json:"error_text,omitempty"`
	ResultCount int           `json:"result_count"`
	DurationMs  int64         `json:"duration_ms"`
}

// LatLng holds a parsed coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HourBusy is one bar of the popularity-by-hour histogram.
type HourBusy struct {
	Hour int `json:"hour"`
	Busy int `json:"busy"`
}

// BookingLink is an outbound order/reservation action found on the page.
type BookingLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

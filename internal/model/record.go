package model

import "time"

// CoordStatus describes how (or whether) a record's coordinates were resolved.
type CoordStatus string

const (
	// CoordStatusKnown means the city was found in the embedded known-city table.
	CoordStatusKnown CoordStatus = "known"
	// CoordStatusResolved means the remote geocoding service returned a match.
	CoordStatusResolved CoordStatus = "resolved"
	// CoordStatusRegionalDefault means the state centroid was used as a fallback.
	CoordStatusRegionalDefault CoordStatus = "regional_default"
	// CoordStatusOutOfRegion means the record is outside the target state and
	// deliberately carries no coordinates.
	CoordStatusOutOfRegion CoordStatus = "out_of_region"
	// CoordStatusUnresolved means no resolution has happened yet.
	CoordStatusUnresolved CoordStatus = "unresolved"
)

// EmailStatus is the outcome of a single email discovery attempt.
type EmailStatus string

const (
	EmailStatusFound    EmailStatus = "found"
	EmailStatusNotFound EmailStatus = "not_found"
)

// InstitutionRecord is one row of the institution registry after
// normalization. Missing cells are empty strings, never sentinels like
// "nan". Latitude and Longitude are both set or both nil.
type InstitutionRecord struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
	Sector       string `json:"sector"`
	City         string `json:"city"`
	State        string `json:"state"`
	Contact      string `json:"contact,omitempty"`
	Site         string `json:"site,omitempty"`
	Email        string `json:"email,omitempty"`

	Latitude    *float64    `json:"latitude"`
	Longitude   *float64    `json:"longitude"`
	CoordStatus CoordStatus `json:"coord_status"`
}

// NeedsEmail reports whether the record should be passed to the site crawler.
func (r *InstitutionRecord) NeedsEmail() bool {
	return r.Site != "" && r.Email == ""
}

// NeedsCoords reports whether the record still lacks a coordinate resolution.
func (r *InstitutionRecord) NeedsCoords() bool {
	return r.Latitude == nil || r.Longitude == nil
}

// SetCoords assigns both coordinates together, preserving the invariant that
// they are never set one without the other.
func (r *InstitutionRecord) SetCoords(lat, lng float64, status CoordStatus) {
	r.Latitude = &lat
	r.Longitude = &lng
	r.CoordStatus = status
}

// ClearCoords unsets both coordinates and records why.
func (r *InstitutionRecord) ClearCoords(status CoordStatus) {
	r.Latitude = nil
	r.Longitude = nil
	r.CoordStatus = status
}

// EmailDiscoveryResult is the immutable outcome of one crawl attempt.
type EmailDiscoveryResult struct {
	Institution string      `json:"institution"`
	City        string      `json:"city,omitempty"`
	Site        string      `json:"site"`
	Emails      []string    `json:"emails"`
	Status      EmailStatus `json:"status"`
	AttemptedAt time.Time   `json:"attempted_at"`
}

// RunSummary aggregates the outcome of one enrichment run.
type RunSummary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	TotalRecords    int `json:"total_records"`
	EmailCandidates int `json:"email_candidates"`
	EmailsFound     int `json:"emails_found"`
	EmailsNotFound  int `json:"emails_not_found"`

	UniqueCities    int `json:"unique_cities"`
	CoordsKnown     int `json:"coords_known"`
	CoordsResolved  int `json:"coords_resolved"`
	CoordsDefaulted int `json:"coords_defaulted"`
	OutOfRegion     int `json:"out_of_region"`
	Unresolved      int `json:"unresolved"`
}

// EmailSuccessRate returns the percentage of crawl attempts that found at
// least one email. Zero candidates yields 0.
func (s *RunSummary) EmailSuccessRate() float64 {
	if s.EmailCandidates == 0 {
		return 0
	}
	return float64(s.EmailsFound) / float64(s.EmailCandidates) * 100
}

// CoordSuccessRate returns the percentage of unique cities resolved without
// falling back to the regional centroid.
func (s *RunSummary) CoordSuccessRate() float64 {
	if s.UniqueCities == 0 {
		return 0
	}
	return float64(s.CoordsKnown+s.CoordsResolved) / float64(s.UniqueCities) * 100
}

// CountCoordStatus bumps the summary counter matching the given status.
func (s *RunSummary) CountCoordStatus(status CoordStatus) {
	switch status {
	case CoordStatusKnown:
		s.CoordsKnown++
	case CoordStatusResolved:
		s.CoordsResolved++
	case CoordStatusRegionalDefault:
		s.CoordsDefaulted++
	case CoordStatusOutOfRegion:
		s.OutOfRegion++
	default:
		s.Unresolved++
	}
}

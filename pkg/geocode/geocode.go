// Package geocode resolves city names to coordinates with a tiered
// strategy: embedded known-city table, then a remote Nominatim query, then
// the regional centroid. Resolution never fails; it degrades. A per-run
// read-through cache guarantees at most one network call per normalized
// city name.
package geocode

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/painel-rs/enrich-cli/internal/resilience"
)

// Status describes how a resolution was obtained.
type Status string

const (
	// StatusKnown: the city was in the embedded known-city table.
	StatusKnown Status = "known"
	// StatusResolved: the remote geocoding service returned a candidate.
	StatusResolved Status = "resolved"
	// StatusRegionalDefault: fell back to the region centroid.
	StatusRegionalDefault Status = "regional_default"
	// StatusOutOfRegion: the record's state is outside the target region;
	// no coordinates are assigned by design.
	StatusOutOfRegion Status = "out_of_region"
	// StatusUnresolved: nothing to resolve (empty city name).
	StatusUnresolved Status = "unresolved"
)

// Result is a coordinate resolution. HasCoords is false for out-of-region
// and unresolved outcomes, in which case Latitude and Longitude are
// meaningless. City is the cleaned display form of the resolved name.
type Result struct {
	City      string
	Latitude  float64
	Longitude float64
	Status    Status
	HasCoords bool
}

// Region is the target region: resolutions are scoped to one state and
// fall back to its centroid.
type Region struct {
	State       string
	CentroidLat float64
	CentroidLng float64
}

// RioGrandeDoSul is the default target region.
var RioGrandeDoSul = Region{State: "RS", CentroidLat: -29.5, CentroidLng: -53.0}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client for remote queries.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points remote queries at a different endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithUserAgent sets the client identity sent to the geocoding service,
// which requires one under its usage policy.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithQueryGap sets the minimum pause between remote queries.
func WithQueryGap(gap time.Duration) Option {
	return func(c *Client) { c.pacer = resilience.NewPacer(gap) }
}

// WithRegion changes the target region.
func WithRegion(r Region) Option {
	return func(c *Client) { c.region = r }
}

// WithCountry sets the country restriction for remote queries.
func WithCountry(code, name string) Option {
	return func(c *Client) {
		c.countryCode = code
		c.country = name
	}
}

// Client resolves cities. One Client spans one run: its cache is
// process-lifetime only.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	countryCode string
	country     string
	region      Region
	pacer       *resilience.Pacer
	cache       *cache
}

// NewClient creates a Client with Nominatim defaults and an empty cache.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     "https://nominatim.openstreetmap.org/search",
		userAgent:   "Painel-Instituicoes-RS/1.0",
		countryCode: "br",
		country:     "Brasil",
		region:      RioGrandeDoSul,
		pacer:       resilience.NewPacer(time.Second),
		cache:       newCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns coordinates for a city within the given state. It never
// returns an error: failures degrade to the regional centroid, and states
// outside the target region deliberately resolve to no coordinates.
func (c *Client) Resolve(ctx context.Context, city, state string) Result {
	if state != c.region.State {
		return Result{Status: StatusOutOfRegion}
	}

	clean := CleanCity(city)
	if clean == "" {
		return Result{Status: StatusUnresolved}
	}
	key := foldKey(clean)

	if cached, ok := c.cache.get(key); ok {
		return cached
	}

	result := c.resolveUncached(ctx, clean)
	result.City = clean
	c.cache.put(key, result)
	return result
}

func (c *Client) resolveUncached(ctx context.Context, city string) Result {
	if coords, ok := lookupKnown(city); ok {
		zap.L().Debug("geocode: known city",
			zap.String("city", city),
			zap.Float64("lat", coords.Lat),
			zap.Float64("lng", coords.Lng),
		)
		return Result{Latitude: coords.Lat, Longitude: coords.Lng, Status: StatusKnown, HasCoords: true}
	}

	lat, lng, err := c.query(ctx, city)
	if err != nil {
		zap.L().Warn("geocode: remote query failed, using regional centroid",
			zap.String("city", city),
			zap.String("kind", string(resilience.Classify(err))),
			zap.Error(err),
		)
		return c.regionalDefault()
	}

	zap.L().Debug("geocode: resolved",
		zap.String("city", city),
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
	)
	return Result{Latitude: lat, Longitude: lng, Status: StatusResolved, HasCoords: true}
}

func (c *Client) regionalDefault() Result {
	return Result{
		Latitude:  c.region.CentroidLat,
		Longitude: c.region.CentroidLng,
		Status:    StatusRegionalDefault,
		HasCoords: true,
	}
}

// CacheSize reports how many distinct city keys have been resolved so far.
func (c *Client) CacheSize() int {
	return c.cache.size()
}

// CacheSnapshot returns a copy of the cache keyed by folded city name, for
// snapshot export.
func (c *Client) CacheSnapshot() map[string]Result {
	return c.cache.snapshot()
}

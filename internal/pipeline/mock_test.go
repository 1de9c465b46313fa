package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/painel-rs/enrich-cli/internal/model"
	"github.com/painel-rs/enrich-cli/pkg/geocode"
)

// mockStore is an in-memory store.Store that records call counts so tests
// can observe checkpointing.
type mockStore struct {
	mu sync.Mutex

	runs         map[string]*model.Run
	records      []model.InstitutionRecord
	emailResults map[string][]model.EmailDiscoveryResult
	geoCache     map[string][]model.GeoCacheEntry

	replaceCalls    int
	saveEmailCalls  int
	failCreateRun   bool
	failSaveResults bool
}

func newMockStore() *mockStore {
	return &mockStore{
		runs:         make(map[string]*model.Run),
		emailResults: make(map[string][]model.EmailDiscoveryResult),
		geoCache:     make(map[string][]model.GeoCacheEntry),
	}
}

func (m *mockStore) CreateRun(ctx context.Context, kind model.RunKind) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateRun {
		return nil, eris.New("mock: create run failed")
	}
	run := &model.Run{ID: uuid.New().String(), Kind: kind, Status: model.RunStatusRunning}
	m.runs[run.ID] = run
	return run, nil
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return eris.Errorf("run not found: %s", runID)
	}
	run.Status = status
	return nil
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return eris.Errorf("run not found: %s", runID)
	}
	run.Status = model.RunStatusComplete
	run.Summary = summary
	return nil
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return run, nil
}

func (m *mockStore) LatestRun(ctx context.Context) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, run := range m.runs {
		return run, nil
	}
	return nil, nil
}

func (m *mockStore) ReplaceRecords(ctx context.Context, records []model.InstitutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	m.records = append([]model.InstitutionRecord(nil), records...)
	return nil
}

func (m *mockStore) LoadRecords(ctx context.Context) ([]model.InstitutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.InstitutionRecord(nil), m.records...), nil
}

func (m *mockStore) SaveEmailResults(ctx context.Context, runID string, results []model.EmailDiscoveryResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaveResults {
		return eris.New("mock: save email results failed")
	}
	m.saveEmailCalls++
	m.emailResults[runID] = append([]model.EmailDiscoveryResult(nil), results...)
	return nil
}

func (m *mockStore) LoadEmailResults(ctx context.Context, runID string) ([]model.EmailDiscoveryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emailResults[runID], nil
}

func (m *mockStore) SaveGeoCache(ctx context.Context, runID string, entries []model.GeoCacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geoCache[runID] = append([]model.GeoCacheEntry(nil), entries...)
	return nil
}

func (m *mockStore) LoadGeoCache(ctx context.Context, runID string) ([]model.GeoCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geoCache[runID], nil
}

func (m *mockStore) Migrate(ctx context.Context) error { return nil }
func (m *mockStore) Close() error                      { return nil }

// mockCrawler returns canned emails or errors per site and counts visits.
type mockCrawler struct {
	mu     sync.Mutex
	emails map[string][]string
	errs   map[string]error
	visits map[string]int
}

func newMockCrawler() *mockCrawler {
	return &mockCrawler{
		emails: make(map[string][]string),
		errs:   make(map[string]error),
		visits: make(map[string]int),
	}
}

func (m *mockCrawler) DiscoverEmails(ctx context.Context, baseURL string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visits[baseURL]++
	if err := m.errs[baseURL]; err != nil {
		return nil, err
	}
	return m.emails[baseURL], nil
}

// mockGeocoder resolves from a preset table with cache semantics matching
// the real client: one lookup per distinct city, centroid fallback.
type mockGeocoder struct {
	mu      sync.Mutex
	state   string
	results map[string]geocode.Result
	cache   map[string]geocode.Result
	lookups int
}

func newMockGeocoder(results map[string]geocode.Result) *mockGeocoder {
	return &mockGeocoder{
		state:   "RS",
		results: results,
		cache:   make(map[string]geocode.Result),
	}
}

func (m *mockGeocoder) Resolve(ctx context.Context, city, state string) geocode.Result {
	if state != m.state {
		return geocode.Result{Status: geocode.StatusOutOfRegion}
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return geocode.Result{Status: geocode.StatusUnresolved}
	}
	key := strings.ToLower(city)

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.cache[key]; ok {
		return cached
	}
	m.lookups++

	result, ok := m.results[city]
	if !ok {
		result = geocode.Result{Latitude: -29.5, Longitude: -53.0, Status: geocode.StatusRegionalDefault, HasCoords: true}
	}
	result.City = city
	m.cache[key] = result
	return result
}

func (m *mockGeocoder) CacheSnapshot() map[string]geocode.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]geocode.Result, len(m.cache))
	for k, v := range m.cache {
		out[k] = v
	}
	return out
}

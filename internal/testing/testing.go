// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/tracksync/internal/matching"
	"github.com/desertthunder/tracksync/internal/models"
)

// MockCatalog is a configurable test double for [services.Catalog]. Zero
// value behaves as an empty catalog; set the function fields to script
// behavior. Call counts are safe for concurrent use.
type MockCatalog struct {
	SearchFn func(ctx context.Context, title, artist, album string) ([]models.Candidate, error)
	AddFn    func(ctx context.Context, playlistID, catalogID string) error
	ListFn   func(ctx context.Context, playlistID string) ([]string, error)

	mu          sync.Mutex
	SearchCalls int
	AddCalls    int
	ListCalls   int
}

func (m *MockCatalog) SearchTrack(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
	m.mu.Lock()
	m.SearchCalls++
	m.mu.Unlock()
	if m.SearchFn != nil {
		return m.SearchFn(ctx, title, artist, album)
	}
	return nil, nil
}

func (m *MockCatalog) AddToPlaylist(ctx context.Context, playlistID, catalogID string) error {
	m.mu.Lock()
	m.AddCalls++
	m.mu.Unlock()
	if m.AddFn != nil {
		return m.AddFn(ctx, playlistID, catalogID)
	}
	return nil
}

func (m *MockCatalog) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()
	if m.ListFn != nil {
		return m.ListFn(ctx, playlistID)
	}
	return nil, nil
}

func (m *MockCatalog) Name() string { return "mock" }

// Calls returns the current call counts (search, add, list).
func (m *MockCatalog) Calls() (int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SearchCalls, m.AddCalls, m.ListCalls
}

// MockReasoner is a test double for [matching.Reasoner].
type MockReasoner struct {
	Selection matching.Selection
	Err       error

	mu    sync.Mutex
	calls int
}

func (m *MockReasoner) Disambiguate(ctx context.Context, req models.SongRequest, candidates []models.Candidate) (matching.Selection, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.Selection, m.Err
}

// CallCount returns how many times Disambiguate was invoked.
func (m *MockReasoner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// SequenceRoundTripper returns scripted responses in order, then repeats the
// last one.
type SequenceRoundTripper struct {
	Responses []*http.Response
	Errs      []error

	mu   sync.Mutex
	next int
}

func (s *SequenceRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.next
	if i >= len(s.Responses) {
		i = len(s.Responses) - 1
	} else {
		s.next++
	}
	if i < 0 {
		return nil, errors.New("no scripted responses")
	}
	var err error
	if i < len(s.Errs) {
		err = s.Errs[i]
	}
	return s.Responses[i], err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

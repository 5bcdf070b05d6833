package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/tracksync/internal/shared"
	"golang.org/x/oauth2"
)

// scriptedTransport returns canned responses in order.
type scriptedTransport struct {
	mu        sync.Mutex
	responses []*http.Response
	requests  []*http.Request
	bodies    []string
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	s.bodies = append(s.bodies, string(body))
	if len(s.responses) == 0 {
		return nil, errors.New("no scripted responses left")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestCatalog(t *testing.T, transport http.RoundTripper) *SpotifyCatalog {
	t.Helper()
	catalog, err := NewSpotifyCatalog(map[string]string{
		"client_id":     "id",
		"client_secret": "secret",
	})
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}
	catalog.token = &oauth2.Token{AccessToken: "test-token"}
	catalog.httpClient = &http.Client{Transport: transport}
	return catalog
}

func TestNewSpotifyCatalog(t *testing.T) {
	t.Run("missing client id", func(t *testing.T) {
		_, err := NewSpotifyCatalog(map[string]string{"client_secret": "s"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected missing credentials, got %v", err)
		}
	})

	t.Run("missing client secret", func(t *testing.T) {
		_, err := NewSpotifyCatalog(map[string]string{"client_id": "i"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected missing credentials, got %v", err)
		}
	})
}

func TestSearchTrack(t *testing.T) {
	body := `{"tracks":{"items":[
		{"id":"t1","name":"Africa","uri":"spotify:track:t1","duration_ms":295000,"popularity":85,
		 "artists":[{"id":"a1","name":"Toto"}],
		 "album":{"id":"al1","name":"Toto IV","release_date":"1982-04-08"},
		 "external_ids":{"isrc":"USSM18200756"}},
		{"id":"t2","name":"Africa","uri":"spotify:track:t2",
		 "artists":[{"id":"a2","name":"Weezer"}],
		 "album":{"id":"al2","name":"Weezer (Teal Album)"}}
	]}}`

	transport := &scriptedTransport{responses: []*http.Response{jsonResponse(200, body)}}
	catalog := newTestCatalog(t, transport)

	candidates, err := catalog.SearchTrack(context.Background(), "Africa", "Toto", "")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	first := candidates[0]
	if first.ID != "t1" || first.Artist != "Toto" || first.Album != "Toto IV" {
		t.Errorf("unexpected first candidate: %+v", first)
	}
	if first.ISRC != "USSM18200756" || first.ReleaseDate != "1982-04-08" {
		t.Errorf("external fields not mapped: %+v", first)
	}

	req := transport.requests[0]
	if req.Header.Get("Authorization") != "Bearer test-token" {
		t.Error("missing bearer token")
	}
	if !strings.Contains(req.URL.RawQuery, "type=track") {
		t.Errorf("unexpected query %q", req.URL.RawQuery)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{401, shared.ErrAuthFailed},
		{403, shared.ErrAuthFailed},
		{404, shared.ErrPlaylistNotFound},
		{429, shared.ErrRateLimited},
		{500, shared.ErrServiceUnavailable},
		{503, shared.ErrServiceUnavailable},
		{418, shared.ErrAPIRequest},
	}

	for _, tc := range tests {
		transport := &scriptedTransport{responses: []*http.Response{jsonResponse(tc.status, `{}`)}}
		catalog := newTestCatalog(t, transport)

		_, err := catalog.SearchTrack(context.Background(), "x", "y", "")
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestUnauthenticatedRequests(t *testing.T) {
	catalog, err := NewSpotifyCatalog(map[string]string{"client_id": "i", "client_secret": "s"})
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}

	_, err = catalog.SearchTrack(context.Background(), "x", "y", "")
	if !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("expected not authenticated, got %v", err)
	}
}

func TestAddToPlaylist(t *testing.T) {
	transport := &scriptedTransport{responses: []*http.Response{jsonResponse(201, `{"snapshot_id":"snap1"}`)}}
	catalog := newTestCatalog(t, transport)

	if err := catalog.AddToPlaylist(context.Background(), "pl1", "t1"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	req := transport.requests[0]
	if req.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", req.Method)
	}
	if !strings.Contains(req.URL.Path, "/playlists/pl1/tracks") {
		t.Errorf("unexpected path %q", req.URL.Path)
	}

	if !strings.Contains(transport.bodies[0], "spotify:track:t1") {
		t.Errorf("body missing track uri: %s", transport.bodies[0])
	}
}

func TestPlaylistTrackIDs(t *testing.T) {
	page1 := `{"items":[{"track":{"id":"t1"}},{"track":{"id":"t2"}}],"next":"https://api.spotify.com/v1/next"}`
	page2 := `{"items":[{"track":{"id":"t3"}},{"track":{"id":""}}],"next":null}`

	transport := &scriptedTransport{responses: []*http.Response{
		jsonResponse(200, page1),
		jsonResponse(200, page2),
	}}
	catalog := newTestCatalog(t, transport)

	ids, err := catalog.PlaylistTrackIDs(context.Background(), "pl1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %v", ids)
	}
	if ids[0] != "t1" || ids[2] != "t3" {
		t.Errorf("unexpected ids %v", ids)
	}
	if len(transport.requests) != 2 {
		t.Errorf("expected pagination to issue 2 requests, got %d", len(transport.requests))
	}
}

func TestSearchQuery(t *testing.T) {
	if got := SearchQuery("Africa", "Toto", ""); got != "track:Africa artist:Toto" {
		t.Errorf("unexpected query %q", got)
	}
	if got := SearchQuery("Africa", "Toto", "Toto IV"); got != "track:Africa artist:Toto album:Toto IV" {
		t.Errorf("unexpected query %q", got)
	}
}

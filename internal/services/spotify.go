// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	searchLimit = 10
	// requestsPerSecond keeps well under Spotify's rolling rate window.
	requestsPerSecond = 5
)

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	URI         string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
	Popularity  int             `json:"popularity"`
	URI         string          `json:"uri"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type playlistItemsResponse struct {
	Items []struct {
		Track SpotifyTrack `json:"track"`
	} `json:"items"`
	Next *string `json:"next"`
}

// SpotifyCatalog implements the Catalog interface for Spotify API
// interactions. Uses [oauth2] for authentication and [rate.Limiter] to stay
// inside the API's request budget.
type SpotifyCatalog struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyCatalog creates a new Spotify catalog client with the given OAuth2 credentials.
func NewSpotifyCatalog(credentials map[string]string) (*SpotifyCatalog, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyCatalog{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an
// "access_token" or "auth_code" in credentials. A "refresh_token" plus
// "token_expiry" (RFC 3339) lets the client refresh expired tokens itself.
func (s *SpotifyCatalog) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		token := &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
		}
		if expiry, err := time.Parse(time.RFC3339, credentials["token_expiry"]); err == nil {
			token.Expiry = expiry
		}
		s.token = token
		s.httpClient = s.config.Client(ctx, s.token)
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.token = token
		s.httpClient = s.config.Client(ctx, s.token)
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

func (s *SpotifyCatalog) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyCatalog) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig exposes the underlying OAuth2 config for the callback flow.
func (s *SpotifyCatalog) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// doRequest performs an authenticated, rate-limited HTTP request to the Spotify API.
func (s *SpotifyCatalog) doRequest(ctx context.Context, method, endpoint string, body, result interface{}) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	apiURL := spotifyBaseURL + endpoint

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrMalformedResponse, err)
		}
	}

	return nil
}

// classifyStatus maps an HTTP status to the shared error taxonomy so the
// retry executor can tell fatal from transient failures.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrAuthFailed, code)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrPlaylistNotFound, code)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrRateLimited, code)
	case code >= 500:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrServiceUnavailable, code)
	default:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrAPIRequest, code)
	}
}

// SearchTrack queries the catalog for candidate tracks.
func (s *SpotifyCatalog) SearchTrack(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
	query := SearchQuery(title, artist, album)
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), searchLimit)

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		candidates = append(candidates, toCandidate(item))
	}

	return candidates, nil
}

// AddToPlaylist appends a track to the playlist.
func (s *SpotifyCatalog) AddToPlaylist(ctx context.Context, playlistID, catalogID string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	body := map[string][]string{
		"uris": {fmt.Sprintf("spotify:track:%s", catalogID)},
	}

	var response struct {
		SnapshotID string `json:"snapshot_id"`
	}
	return s.doRequest(ctx, http.MethodPost, endpoint, body, &response)
}

// PlaylistTrackIDs retrieves all track ids in the playlist, following pagination.
func (s *SpotifyCatalog) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	var ids []string
	limit := 100
	offset := 0

	for {
		endpoint := fmt.Sprintf(
			"/playlists/%s/tracks?fields=items(track(id)),next&limit=%d&offset=%d",
			url.PathEscape(playlistID), limit, offset,
		)

		var page playlistItemsResponse
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track.ID != "" {
				ids = append(ids, item.Track.ID)
			}
		}

		if page.Next == nil {
			break
		}
		offset += limit
	}

	return ids, nil
}

// toCandidate converts a Spotify track into the provider-neutral candidate shape.
func toCandidate(t SpotifyTrack) models.Candidate {
	c := models.Candidate{
		ID:          t.ID,
		Title:       t.Name,
		Album:       t.Album.Name,
		URI:         t.URI,
		ISRC:        t.ExternalIDs.ISRC,
		DurationMS:  t.DurationMS,
		Popularity:  t.Popularity,
		ReleaseDate: t.Album.ReleaseDate,
	}
	if len(t.Artists) > 0 {
		c.Artist = t.Artists[0].Name
	}
	return c
}

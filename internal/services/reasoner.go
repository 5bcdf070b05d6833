// Gemini implementation of [matching.Reasoner]
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/tracksync/internal/matching"
	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/shared"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const reasonerSystemPrompt = `You are an expert music librarian matching a requested song against catalog candidates.
Given the original song and multiple candidates, select the best match.

Consider these factors:
- Artist name variations (e.g., "The Beatles" vs "Beatles")
- Album names and release dates
- Remaster vs original versions
- Live vs studio recordings
- Featured artists
- Single vs album versions

Respond with ONLY the id of the best match and a brief reason (one sentence).
If none of the candidates is a good match, respond with "NONE" as the id.

Format your response EXACTLY like this:
ID: <candidate id> (or NONE)
REASON: Brief explanation in one sentence`

// GeminiReasoner implements [matching.Reasoner] using Google Gemini.
type GeminiReasoner struct {
	client *genai.Client
	model  string
}

// NewGeminiReasoner creates a reasoner backed by the given Gemini model.
func NewGeminiReasoner(ctx context.Context, apiKey, model string) (*GeminiReasoner, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing gemini api_key", shared.ErrMissingCredentials)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiReasoner{client: client, model: model}, nil
}

// Close releases resources held by the client.
func (g *GeminiReasoner) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Disambiguate asks the model to choose among candidates. A response that
// does not follow the ID/REASON format is a malformed-response error, which
// the retry executor treats as fatal; a "NONE" selection is also an error so
// the disambiguator falls through to no_match.
func (g *GeminiReasoner) Disambiguate(ctx context.Context, req models.SongRequest, candidates []models.Candidate) (matching.Selection, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0) // deterministic selection
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(reasonerSystemPrompt)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(req, candidates)))
	if err != nil {
		return matching.Selection{}, fmt.Errorf("reasoner request failed: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return matching.Selection{}, err
	}

	return parseSelection(text)
}

// buildPrompt renders the request and candidate list for the model.
func buildPrompt(req models.SongRequest, candidates []models.Candidate) string {
	var b strings.Builder
	album := req.Album
	if album == "" {
		album = "Unknown"
	}
	fmt.Fprintf(&b, "Original Song:\nTitle: %s\nArtist: %s\nAlbum: %s\n\nCandidates:\n", req.Title, req.Artist, album)

	for i, c := range candidates {
		fmt.Fprintf(&b, "\n%d. %q by %s\n   Album: %s\n   Release Date: %s\n   Match Score: %.2f\n   Popularity: %d\n   ID: %s\n",
			i+1, c.Title, c.Artist, c.Album, c.ReleaseDate, c.Score, c.Popularity, c.ID)
	}

	b.WriteString("\nWhich is the best match?")
	return b.String()
}

// extractText flattens the first candidate's text parts.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in reasoner response", shared.ErrMalformedResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no content in reasoner response", shared.ErrMalformedResponse)
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no text parts in reasoner response", shared.ErrMalformedResponse)
	}

	return strings.Join(parts, ""), nil
}

// parseSelection extracts the ID/REASON lines from the model output.
func parseSelection(text string) (matching.Selection, error) {
	var id, reason string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "ID:"); ok {
			id = strings.TrimSpace(rest)
		} else if rest, ok := strings.CutPrefix(line, "REASON:"); ok {
			reason = strings.TrimSpace(rest)
		}
	}

	if id == "" {
		return matching.Selection{}, fmt.Errorf("%w: reasoner response missing ID line", shared.ErrMalformedResponse)
	}
	if strings.EqualFold(id, "NONE") {
		return matching.Selection{}, fmt.Errorf("%w: reasoner found no acceptable match", shared.ErrTrackNotFound)
	}

	// Tolerate full URIs ("spotify:track:<id>") in place of bare ids.
	if idx := strings.LastIndex(id, ":"); idx >= 0 {
		id = id[idx+1:]
	}

	return matching.Selection{CatalogID: id, Rationale: reason}, nil
}

// package services defines interfaces for the external collaborators the
// workflow core depends on
//
// Spotify (catalog), Gemini (disambiguation reasoning)
package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/tracksync/internal/models"
)

// Catalog defines the interface for the external music catalog the pipeline
// searches and commits to.
type Catalog interface {
	// SearchTrack queries the catalog for candidates matching title and
	// artist (album optional). Candidates come back unscored.
	SearchTrack(ctx context.Context, title, artist, album string) ([]models.Candidate, error)

	// AddToPlaylist adds a catalog track to the target playlist.
	AddToPlaylist(ctx context.Context, playlistID, catalogID string) error

	// PlaylistTrackIDs returns the catalog ids currently in the playlist,
	// used by the verify step.
	PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error)

	// Name returns the name of the catalog provider (e.g., "Spotify")
	Name() string
}

// SearchQuery builds the catalog search expression for a song.
func SearchQuery(title, artist, album string) string {
	query := fmt.Sprintf("track:%s artist:%s", title, artist)
	if album != "" {
		query += fmt.Sprintf(" album:%s", album)
	}
	return query
}

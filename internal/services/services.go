// package services defines interfaces for interacting with the Spotify HTTP APIs
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// PlaylistService defines the playlist operations a weekly copy needs.
//
// Every call takes the bearer access token explicitly so that callers decide when a token is refreshed.
type PlaylistService interface {
	// PlaylistTrackURIs returns the track URIs of a playlist, first page only.
	PlaylistTrackURIs(ctx context.Context, accessToken, playlistID string) ([]string, error)

	// CreatePlaylist creates a playlist owned by userID.
	CreatePlaylist(ctx context.Context, accessToken, userID string, playlist NewPlaylist) (*Playlist, error)

	// AddTracks inserts uris into a playlist in a single request, preserving order.
	AddTracks(ctx context.Context, accessToken, playlistID string, uris []string) (*AddTracksResult, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService covers the authorization-code and refresh-token grants of a provider.
type OAuthService interface {
	// GetAuthURL returns the consent URL carrying state.
	GetAuthURL(state string) string

	// Exchange trades an authorization code for an access and refresh token pair.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Refresh trades a refresh token for a fresh access token.
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Playlist represents a playlist returned by the provider
type Playlist struct {
	ID     string
	Name   string
	Public bool
	URI    string
}

// NewPlaylist describes a playlist to create.
type NewPlaylist struct {
	Name        string
	Description string
	Public      bool
}

// AddTracksResult carries the raw outcome of a bulk insert.
type AddTracksResult struct {
	StatusCode int
	SnapshotID string
}

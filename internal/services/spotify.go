// Spotify API implementation of [PlaylistService] and [OAuthService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/weekcopy/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL     = "https://api.spotify.com/v1"
	defaultRedirectURI = "http://localhost:3000/callback"
	defaultRateLimit   = 10.0
)

// Scopes requested during interactive authorization.
var Scopes = []string{
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistReadPrivate,
}

// Owner is the owner of a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Owner  Owner  `json:"owner"`
	Public bool   `json:"public"`
	URI    string `json:"uri"`
}

type trackRef struct {
	URI string `json:"uri"`
}

// SpotifyPlaylistItem is a playlist entry trimmed to fields=items(track(uri)).
type SpotifyPlaylistItem struct {
	Track *trackRef `json:"track"`
}

type playlistItemsPage struct {
	Items []SpotifyPlaylistItem `json:"items"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Public      bool   `json:"public"`
	Description string `json:"description,omitempty"`
}

type addTracksRequest struct {
	URIs []string `json:"uris"`
}

type addTracksResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

type errorResponse struct {
	Error spotify.Error `json:"error"`
}

// SpotifyService implements [PlaylistService] and [OAuthService] for Spotify.
// Uses [oauth2] for the token endpoint and a rate limited [http.Client] for the Web API.
type SpotifyService struct {
	config     *oauth2.Config
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithHTTPClient sets the client used for both the token endpoint and the Web API.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithEndpoints overrides the accounts and Web API base URLs.
func WithEndpoints(authURL, tokenURL, apiURL string) SpotifyOption {
	return func(s *SpotifyService) {
		s.config.Endpoint.AuthURL = authURL
		s.config.Endpoint.TokenURL = tokenURL
		s.apiURL = strings.TrimRight(apiURL, "/")
	}
}

// WithRateLimit caps Web API requests per second. Zero or less disables pacing.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
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
		redirectURI = defaultRedirectURI
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyauth.AuthURL,
				TokenURL:  spotifyauth.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiURL:     spotifyBaseURL,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetOAuthConfig returns the underlying [oauth2.Config].
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens via the authorization_code grant.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, classifyTokenError(err)
	}
	return token, nil
}

// Refresh trades a refresh token for a new access token via the refresh_token grant.
//
// When the provider does not rotate the refresh token, the returned token carries the one passed in.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	src := s.config.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, classifyTokenError(err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

// oauthContext makes the oauth2 package use the service's [http.Client].
func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// classifyTokenError maps token endpoint failures onto [shared.ErrAuthInvalid] or [shared.ErrTransport].
//
// A 4xx answer means the provider looked at the grant and refused it.
func classifyTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < http.StatusInternalServerError {
		if re.ErrorCode != "" {
			return fmt.Errorf("%w: %s %s", shared.ErrAuthInvalid, re.ErrorCode, re.ErrorDescription)
		}
		return fmt.Errorf("%w: status %d", shared.ErrAuthInvalid, re.Response.StatusCode)
	}
	return fmt.Errorf("%w: token endpoint: %v", shared.ErrTransport, err)
}

// doRequest performs an authenticated HTTP request to the Spotify API and returns the status code.
func (s *SpotifyService) doRequest(ctx context.Context, accessToken, method, endpoint string, body any, result any) (int, error) {
	if accessToken == "" {
		return 0, fmt.Errorf("%w: empty access token", shared.ErrAuthFailure)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.apiURL+endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %v", shared.ErrTransport, method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, decodeAPIError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

func decodeAPIError(resp *http.Response) error {
	var e errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error.Message != "" {
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, e.Error.Message)
	}
	return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
}

// PlaylistTrackURIs fetches the track URIs of a playlist.
//
// Only the first page at the provider's default page size is read. Entries without a track
// (removed or unavailable items) are skipped; every other URI is returned verbatim in playlist order.
func (s *SpotifyService) PlaylistTrackURIs(ctx context.Context, accessToken, playlistID string) ([]string, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	query := url.Values{"fields": {"items(track(uri))"}}
	endpoint := fmt.Sprintf("/playlists/%s/tracks?%s", url.PathEscape(playlistID), query.Encode())

	var page playlistItemsPage
	if _, err := s.doRequest(ctx, accessToken, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	uris := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		if item.Track == nil || item.Track.URI == "" {
			continue
		}
		uris = append(uris, item.Track.URI)
	}
	return uris, nil
}

// CreatePlaylist creates a playlist for userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, accessToken, userID string, playlist NewPlaylist) (*Playlist, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	body := createPlaylistRequest{
		Name:        playlist.Name,
		Public:      playlist.Public,
		Description: playlist.Description,
	}

	var created SpotifyPlaylist
	if _, err := s.doRequest(ctx, accessToken, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%w: created playlist has no id", shared.ErrAPIRequest)
	}

	return &Playlist{
		ID:     created.ID,
		Name:   created.Name,
		Public: created.Public,
		URI:    created.URI,
	}, nil
}

// AddTracks inserts uris into playlistID with one request.
//
// The result carries the status code so callers can insist on 201 Created.
func (s *SpotifyService) AddTracks(ctx context.Context, accessToken, playlistID string, uris []string) (*AddTracksResult, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	var resp addTracksResponse
	status, err := s.doRequest(ctx, accessToken, http.MethodPost, endpoint, addTracksRequest{URIs: uris}, &resp)
	if err != nil {
		return &AddTracksResult{StatusCode: status}, err
	}

	return &AddTracksResult{StatusCode: status, SnapshotID: resp.SnapshotID}, nil
}

// CurrentUser returns the profile that owns accessToken.
func (s *SpotifyService) CurrentUser(ctx context.Context, accessToken string) (*spotify.PrivateUser, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", shared.ErrAuthFailure)
	}

	ctx = s.oauthContext(ctx)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	client := spotify.New(httpClient, spotify.WithBaseURL(s.apiURL+"/"))

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return user, nil
}

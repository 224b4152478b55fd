// Package services defines the [PlaylistService] and [OAuthService] interfaces and implements them for Spotify.
//
// # Spotify Implementation
//
// [SpotifyService] talks to two hosts:
//   - the accounts service, through [oauth2.Config], for the authorization_code and refresh_token grants
//     (client credentials travel in a Basic authorization header)
//   - the Web API, through a rate limited [http.Client], with the access token passed per call
//
// Access tokens are not cached here. Callers obtain one from the credential manager and hand it
// to each call, so a service value can be shared between the scheduler and one-shot commands.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAuthInvalid] : the token endpoint refused the grant (4xx)
//   - [shared.ErrTransport] : network failure or 5xx from the token endpoint
//   - [shared.ErrAPIRequest] : non-2xx from the Web API, with the provider message when present
//   - [shared.ErrAuthFailure] : a Web API call was attempted without an access token
package services

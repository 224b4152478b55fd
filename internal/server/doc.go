// Package server provides HTTP routing, middleware, and the OAuth callback handler used during interactive authorization.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] added first runs outermost.
//
// [CallbackRouter] registers GET-only patterns on an [http.ServeMux], so stray browser requests (favicon, wrong method) are answered by the mux and never consume the one-shot callback.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback.
//
// The handler validates the state parameter, exchanges the authorization code through an [Exchanger],
// answers the browser with [ConfirmationMessage], and sends the result through a channel.
//
// It only processes one callback; later requests are rejected.
//
// # Usage
//
// The credential manager starts a temporary listener on the configured address (localhost:3000 by default),
// waits for the callback, and shuts the listener down once a result arrives.
package server

// Package sso implements token-based SSO delegation.
//
// # Overview
//
// An external identity provider vouches for a user by depositing a short-lived,
// high-entropy token in a shared cache (the token store), then redirecting the
// browser here with the token and a redirect target. This package exchanges the
// token for a local identity.
//
// # Handshake
//
//  1. GET /sso/{client}/login, or a callback without a token parameter, sends the
//     browser to the configured login form.
//  2. The identity provider calls Issuer.Issue (or POST /sso/{client}/tokens) and
//     redirects the browser to /sso/{client}/callback?token=...&redirect=...
//  3. Client.HandleCallback looks up "sso_token."+token in the store. On a hit the
//     credentials gain a username and a continuation cookie carrying the redirect
//     target is appended to the response.
//  4. The ProfileCreator turns the credentials into a Profile, the ProfileSink hands
//     it to the host session layer, and /sso/{client}/continue sends the browser on.
//
// Every per-request failure becomes a redirect back to the login form with a generic
// reason in the error parameter. Only configuration errors are fatal, at startup.
//
// # Usage Example
//
//	client, err := sso.NewClient(sso.ClientConfig{
//		Name:     "bizdock",
//		LoginURL: "https://idp.example.com/login",
//	}, store)
//
//	registry, _ := sso.NewRegistry(client)
//	handlers := sso.NewHandlers(registry, nil, sso.HandlersConfig{})
//	handlers.RegisterRoutes(router)
//
// # Redemption
//
// Tokens are not deleted when redeemed; a live token validates again with the same
// uid until the store expires it. Set ClientConfig.SingleUse to delete on success.
//
// # Related Packages
//
//   - pkg/tokenstore: Redis, in-memory and Postgres token stores
//   - pkg/observability: Logging, metrics and tracing
package sso

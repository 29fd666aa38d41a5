// Package cli provides the handoff command-line interface for operating the token store.
//
// # Overview
//
// This package implements the `handoff` CLI tool used by operators and identity-provider
// integrations to mint handoff tokens, look them up, and maintain the shared store.
//
// # Commands
//
// mint: Issue tokens for one or more user ids
//
//	handoff mint \
//		--store redis \
//		--redis-url redis://cache:6379/0 \
//		--ttl 5m \
//		alice bob
//
// Print ready-to-use handoff URLs:
//
//	handoff mint \
//		--callback-url https://app.example.com/sso/bizdock/callback \
//		--redirect /reports \
//		alice
//
// inspect: Show the user id behind a token
//
//	handoff inspect <token>
//	handoff inspect --consume <token>  # single-use read
//
// ping: Check the token store is reachable
//
//	handoff ping --store postgres --postgres-url postgres://db/handoff
//
// sweep: Delete expired rows from the Postgres store
//
//	handoff sweep --store postgres
//
// # Configuration
//
// Store flags default to the HANDOFF_STORE_TYPE, HANDOFF_REDIS_URL and
// HANDOFF_POSTGRES_URL variables read by the server, so the CLI reaches the
// same store without extra flags. The in-memory store is private to one process
// and only useful for trying the commands out.
//
// # Related Packages
//
//   - pkg/sso: Token minting and handoff URL construction
//   - pkg/tokenstore: Store backends
//   - pkg/async: Concurrent minting
package cli

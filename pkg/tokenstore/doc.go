// Package tokenstore provides the shared caches SSO tokens are deposited in and
// redeemed from.
//
// # Backends
//
//   - RedisStore: go-redis, JSON values with native expiry
//   - MemoryStore: bounded expirable LRU for single-process deployments and tests
//   - SQLStore: Postgres table with an expires_at column, swept periodically
//
// All backends implement sso.TokenStore: Get reports a miss as (nil, nil) and only
// returns an error when the store itself failed.
//
// # Usage Example
//
//	store, err := tokenstore.New(ctx, cfg, logger)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	instrumented := tokenstore.Instrument(store, store.Backend(), recorder)
//	client, err := sso.NewClient(clientCfg, instrumented)
//
// SQLStore rows are not removed by reads, so run a Sweeper alongside it:
//
//	sweeper, _ := tokenstore.NewSweeper(sqlStore, "@every 1m", logger)
//	sweeper.Start()
//	defer sweeper.Stop(ctx)
package tokenstore

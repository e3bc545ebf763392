// Package backend provides the wanx video API server.
//
// The code is organized into subpackages:
//
//   - internal/feed: cursor pagination with post-fetch filtering and backfill
//   - internal/feeds: the catalog of feeds served over HTTP
//   - internal/handlers: HTTP request handlers for all API endpoints
//   - internal/models: Data models and database schemas
//   - internal/repository: gorm repositories and the keyset sources behind each feed
//   - internal/auth: user tokens and the partner token guard
//   - internal/migu: Migu user center and pay client
//   - internal/cache: redis locks and the SMS alert job queue
//   - internal/database: Database connection and migrations
//   - internal/middleware: HTTP middleware (rate limiting, tracing, metrics)
//   - internal/seed: fake data for development databases
//
// Binaries live in cmd/server and cmd/cli.
package backend

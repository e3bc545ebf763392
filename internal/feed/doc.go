// Package feed pages through ordered candidate sources whose results are filtered
// after retrieval.
//
// A Source returns candidates (id + sort key) bounded by a Cursor, a Repository
// resolves them to objects, and a Filter drops the ones that must not be served.
// In timestamp mode the Fetcher keeps issuing rounds, each bounded by the last
// candidate seen, until the page is full or the Source runs dry, so filtering never
// produces short pages in the middle of a feed. Page mode runs exactly one round.
//
// Every HTTP feed in the server is one Fetcher instantiation; see internal/feeds.
package feed

// Package wiki implements the external source of the crawl: a client for the
// MediaWiki "linkshere" query, which answers "which pages link to page P".
//
// Results are paginated. Each response may carry a continuation token; the
// next call with that token continues exactly where the previous call left
// off, and a response without one means the result set is exhausted.
//
// Responses are decoded into typed structures. A response that violates the
// expected shape fails as a whole with one of three decode errors:
// ErrMalformedResponse, ErrMissingField or ErrUnexpectedType. Network
// failures and API-reported errors match ErrTransport.
package wiki

// Package pipeline runs the crawl as three concurrent stages connected by
// bounded channels:
//
//	Frontier -> Fetcher -> Persister
//	    ^                      |
//	    +------ feedback ------+
//
// The Frontier picks targets (pending continuations first, then unresolved
// stubs from the graph store), the Fetcher issues one external call per
// request, and the Persister applies each decoded batch in a single
// transaction. When a batch reports more results, the Persister feeds a
// continuation back to the Frontier.
//
// Closing a channel is the terminal signal. A stage that sees its input
// closed flushes its buffer downstream, closes its own output, and returns,
// so buffered work always reaches the next stage before the close does.
// Only the Frontier observes the caller's stop request; the other stages
// stop because their input closes.
package pipeline

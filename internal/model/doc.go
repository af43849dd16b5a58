// Package model defines the core data structures shared by the crawl
// pipeline, the graph store and the report writers.
//
// This package contains the following main types:
//   - Page and Link: rows of the persisted crawl graph
//   - PageObservation and LinkObservation: what the external source reported
//   - ExpansionRequest, Batch and Continuation: messages exchanged between
//     the Frontier, Fetcher and Persister stages
//   - GraphStats: a summary of the persisted graph used by reports
//
// Models live in their own package so that database, wiki, pipeline and
// report can all depend on them without import cycles.
package model

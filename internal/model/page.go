package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultLinkLength is the weight stored for every observed edge.
// It is reserved for future weighting and never recomputed.
const DefaultLinkLength = 1

// Page is a node in the crawl graph.
//
// A page whose Title is empty is a stub: it is known only because another
// page links to it. Resolution fills in Title without creating a new row.
type Page struct {
	// ID is the surrogate identifier assigned by the store on first insert.
	ID int64 `json:"id"`

	// ExternalID is the identifier used by the external source.
	// At most one Page exists per ExternalID.
	ExternalID string `json:"external_id"`

	// Title is the resolved page title. Empty means stub.
	Title string `json:"title,omitempty"`

	// Missing is set when the external source reported that the page
	// does not exist. Missing pages are never offered for expansion again.
	Missing bool `json:"missing,omitempty"`
}

// IsStub reports whether the page still waits for resolution.
func (p *Page) IsStub() bool {
	return p.Title == "" && !p.Missing
}

// Link is a directed edge meaning "FromPage links to ToPage".
// At most one Link exists per ordered (ToPage, FromPage) pair.
type Link struct {
	ID       int64 `json:"id"`
	ToPage   int64 `json:"to_page"`
	FromPage int64 `json:"from_page"`
	Length   int   `json:"length"`
}

// PageObservation is a page as reported by the external source.
// Links-here entries produce observations carrying only ExternalID.
type PageObservation struct {
	ExternalID string `json:"external_id"`
	Title      string `json:"title,omitempty"`
	Missing    bool   `json:"missing,omitempty"`
}

// HasTitle reports whether the observation resolves a title.
func (o PageObservation) HasTitle() bool {
	return o.Title != ""
}

// LinkObservation is a directed edge reported by the external source,
// expressed with external identifiers. From links to To.
type LinkObservation struct {
	To   string `json:"to"`
	From string `json:"from"`
}

// NormalizeTitle returns the canonical form used to match titles.
// Titles are compared in Unicode NFC with surrounding space removed so that
// the same title reported with different composition reconciles to one row.
func NormalizeTitle(title string) string {
	return norm.NFC.String(strings.TrimSpace(title))
}

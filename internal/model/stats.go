package model

import "time"

// GraphStats summarizes the persisted crawl graph.
type GraphStats struct {
	// Pages is the total number of page rows.
	Pages int `json:"pages"`

	// Resolved is the number of pages with a title.
	Resolved int `json:"resolved"`

	// Stubs is the number of pages still waiting for resolution.
	Stubs int `json:"stubs"`

	// Missing is the number of pages the source reported as nonexistent.
	Missing int `json:"missing"`

	// Links is the total number of edges.
	Links int `json:"links"`

	// PendingContinuations is the number of continuations parked at the
	// last shutdown that will be resumed by the next crawl.
	PendingContinuations int `json:"pending_continuations"`

	// TopLinked lists the pages with the most incoming links.
	TopLinked []PageDegree `json:"top_linked,omitempty"`

	// GeneratedAt is when the summary was computed.
	GeneratedAt time.Time `json:"generated_at"`
}

// PageDegree pairs a page with its number of incoming links.
type PageDegree struct {
	Page     Page `json:"page"`
	Incoming int  `json:"incoming"`
}

// ResolvedRatio returns the share of resolved pages in [0, 1].
func (s *GraphStats) ResolvedRatio() float64 {
	if s.Pages == 0 {
		return 0
	}
	return float64(s.Resolved) / float64(s.Pages)
}

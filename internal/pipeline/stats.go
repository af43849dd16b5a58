package pipeline

import "time"

// Stats counts what the pipeline did during one run.
type Stats struct {
	// Requests is the number of expansion requests sent to the Fetcher.
	Requests int

	// Resumed is the number of parked continuations loaded at startup.
	Resumed int

	// Fetches is the number of successful external calls.
	Fetches int

	// FetchErrors counts failed external calls by reason.
	FetchErrors map[string]int

	// BatchesApplied and BatchesFailed count persistence transactions.
	BatchesApplied int
	BatchesFailed  int

	PagesInserted int
	PagesResolved int
	PagesMissing  int

	LinksInserted  int
	LinksDuplicate int
	LinksDropped   int

	// Continuations is the number of continuations fed back to the Frontier.
	Continuations int

	// Parked is the number of continuations saved to the store at shutdown.
	Parked int

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took.
func (s Stats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// TotalFetchErrors returns the number of failed external calls.
func (s Stats) TotalFetchErrors() int {
	n := 0
	for _, c := range s.FetchErrors {
		n += c
	}
	return n
}

// add accumulates the counters of other into s.
func (s *Stats) add(other Stats) {
	s.Requests += other.Requests
	s.Resumed += other.Resumed
	s.Fetches += other.Fetches
	if len(other.FetchErrors) > 0 {
		if s.FetchErrors == nil {
			s.FetchErrors = make(map[string]int, len(other.FetchErrors))
		}
		for reason, n := range other.FetchErrors {
			s.FetchErrors[reason] += n
		}
	}
	s.BatchesApplied += other.BatchesApplied
	s.BatchesFailed += other.BatchesFailed
	s.PagesInserted += other.PagesInserted
	s.PagesResolved += other.PagesResolved
	s.PagesMissing += other.PagesMissing
	s.LinksInserted += other.LinksInserted
	s.LinksDuplicate += other.LinksDuplicate
	s.LinksDropped += other.LinksDropped
	s.Continuations += other.Continuations
	s.Parked += other.Parked
}

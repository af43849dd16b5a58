package model

// ExpansionRequest asks the Fetcher to find the pages linking to Target.
// An empty Token requests the first result page; otherwise Token is the
// continuation returned by the previous call for the same Target.
type ExpansionRequest struct {
	Target string
	Token  string
}

// IsContinuation reports whether the request resumes a paginated result.
func (r ExpansionRequest) IsContinuation() bool {
	return r.Token != ""
}

// Batch is the decoded result of one external call for one target.
type Batch struct {
	// Target is the page whose incoming links were requested.
	Target string

	// Token is the continuation the request was issued with, empty for the
	// first call. The Persister uses it to forget a parked continuation
	// once it has been consumed.
	Token string

	// Next is the continuation returned by the source. Empty means the
	// result set for Target is exhausted.
	Next string

	// Pages holds every page observation, in response order.
	Pages []PageObservation

	// Links holds every edge observation, in response order.
	Links []LinkObservation
}

// HasMore reports whether more results exist for the batch target.
func (b *Batch) HasMore() bool {
	return b.Next != ""
}

// Continuation is fed back from the Persister to the Frontier when a
// target's result set was paginated and needs a follow-up request.
type Continuation struct {
	Target string
	Token  string
}

// Request converts the continuation into the follow-up expansion request.
func (c Continuation) Request() ExpansionRequest {
	return ExpansionRequest{Target: c.Target, Token: c.Token}
}

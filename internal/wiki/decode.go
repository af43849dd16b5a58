package wiki

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Result is one decoded linkshere response.
type Result struct {
	// Pages holds the queried pages, ordered by numeric page id.
	Pages []PageLinks

	// Continue is the lhcontinue token. Empty means the result set is
	// exhausted.
	Continue string
}

// PageLinks is one queried page and the pages linking to it.
type PageLinks struct {
	// PageID is the external id of the queried page.
	PageID string

	// Title is the resolved title; empty when the API did not report one.
	Title string

	// Missing is set when the API reported the page as missing or invalid.
	Missing bool

	// LinksHere lists the external ids of linking pages in response order.
	LinksHere []string
}

// rawResponse mirrors the API response:
//
//	{"continue": {"lhcontinue": "..."},
//	 "query": {"pages": {"<id>": {"title": "...", "linkshere": [{"pageid": 1}]}}}}
type rawResponse struct {
	Continue *rawContinue `json:"continue"`
	Query    *rawQuery    `json:"query"`
	Error    *rawError    `json:"error"`
}

type rawContinue struct {
	LHContinue *string `json:"lhcontinue"`
}

type rawQuery struct {
	Pages map[string]rawPage `json:"pages"`
}

type rawPage struct {
	Title     *string          `json:"title"`
	Missing   *json.RawMessage `json:"missing"`
	Invalid   *json.RawMessage `json:"invalid"`
	LinksHere []rawLinkHere    `json:"linkshere"`
}

type rawLinkHere struct {
	PageID *int64 `json:"pageid"`
}

type rawError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// DecodeReader decodes a response body. See Decode.
func DecodeReader(r io.Reader) (*Result, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %w", ErrTransport, err)
	}
	return Decode(body)
}

// Decode converts a linkshere response into a Result.
// Any shape violation fails the whole response with a decode error.
func Decode(body []byte) (*Result, error) {
	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, classifyJSONError(err)
	}

	if raw.Error != nil {
		return nil, &APIError{Code: raw.Error.Code, Info: raw.Error.Info}
	}
	if raw.Query == nil {
		return nil, fmt.Errorf("%w: query", ErrMissingField)
	}
	if raw.Query.Pages == nil {
		return nil, fmt.Errorf("%w: query.pages", ErrMissingField)
	}

	result := &Result{
		Pages: make([]PageLinks, 0, len(raw.Query.Pages)),
	}
	if raw.Continue != nil && raw.Continue.LHContinue != nil {
		result.Continue = *raw.Continue.LHContinue
	}

	for _, key := range sortedPageKeys(raw.Query.Pages) {
		page, err := decodePage(key, raw.Query.Pages[key])
		if err != nil {
			return nil, err
		}
		result.Pages = append(result.Pages, page)
	}

	return result, nil
}

// decodePage converts one entry of query.pages.
func decodePage(key string, raw rawPage) (PageLinks, error) {
	if key == "" {
		return PageLinks{}, fmt.Errorf("%w: query.pages key", ErrMissingField)
	}

	page := PageLinks{
		PageID:    key,
		Missing:   raw.Missing != nil || raw.Invalid != nil,
		LinksHere: make([]string, 0, len(raw.LinksHere)),
	}
	if raw.Title != nil {
		page.Title = *raw.Title
	}

	for i, lh := range raw.LinksHere {
		if lh.PageID == nil {
			return PageLinks{}, fmt.Errorf("%w: query.pages.%s.linkshere[%d].pageid", ErrMissingField, key, i)
		}
		page.LinksHere = append(page.LinksHere, strconv.FormatInt(*lh.PageID, 10))
	}

	return page, nil
}

// classifyJSONError maps encoding/json failures onto the decode errors.
func classifyJSONError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return fmt.Errorf("%w: body is %s, not an object", ErrMalformedResponse, typeErr.Value)
		}
		return fmt.Errorf("%w: %s is %s", ErrUnexpectedType, typeErr.Field, typeErr.Value)
	}
	// Syntax errors and truncated bodies.
	return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
}

// sortedPageKeys orders page ids numerically; non-numeric keys sort last.
func sortedPageKeys(pages map[string]rawPage) []string {
	keys := make([]string, 0, len(pages))
	for k := range pages {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseInt(keys[i], 10, 64)
		b, errB := strconv.ParseInt(keys[j], 10, 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

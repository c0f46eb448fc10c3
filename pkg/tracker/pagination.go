package tracker

import (
	"bytes"
	"encoding/json"
)

// Page is a paginated list response
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// UnwrapResults normalizes a list response. A bare JSON array is returned
// as is, a paginated object yields its results, and anything else yields
// an empty slice. next is the link to the following page, if any.
func UnwrapResults[T any](body []byte) (items []T, next string) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []T{}, ""
	}

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil || items == nil {
			return []T{}, ""
		}
		return items, ""
	case '{':
		var page struct {
			Next    *string         `json:"next"`
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return []T{}, ""
		}
		results := bytes.TrimSpace(page.Results)
		if len(results) == 0 || results[0] != '[' {
			return []T{}, ""
		}
		if err := json.Unmarshal(results, &items); err != nil || items == nil {
			return []T{}, ""
		}
		if page.Next != nil {
			next = *page.Next
		}
		return items, next
	default:
		return []T{}, ""
	}
}

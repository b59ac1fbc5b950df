package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort directions
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// SortParams holds the sort_by and sort_order query parameters.
type SortParams struct {
	By    string
	Order string
}

// ParseSort extracts sorting parameters from the request. sortBy is accepted
// as an alias of sort_by; order defaults to asc.
func ParseSort(r *http.Request) SortParams {
	q := r.URL.Query()
	s := SortParams{By: q.Get("sort_by"), Order: strings.ToLower(q.Get("sort_order"))}
	if s.By == "" {
		s.By = q.Get("sortBy")
	}
	if s.Order == "" {
		s.Order = strings.ToLower(q.Get("sortOrder"))
	}
	if s.Order != SortDesc {
		s.Order = SortAsc
	}
	return s
}

// SortData returns a new slice with items ordered by the JSON field sortBy.
// Items without a value for the field always come last, whatever the order.
// Numbers compare numerically, strings with locale-aware collation, booleans
// false before true. The sort is stable; ties keep their input order.
func SortData[T any](items []T, sortBy, sortOrder string) []T {
	out := make([]T, len(items))
	copy(out, items)
	if sortBy == "" || len(out) < 2 {
		return out
	}

	keys := make([]interface{}, len(out))
	for i := range out {
		keys[i] = fieldValue(out[i], sortBy)
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}

	col := collate.New(language.Und)
	desc := strings.EqualFold(sortOrder, SortDesc)
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka == nil || kb == nil {
			return ka != nil && kb == nil
		}
		c := compareValues(col, ka, kb)
		if desc {
			return c > 0
		}
		return c < 0
	})

	sorted := make([]T, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

// fieldValue returns the JSON value of field on item, nil when absent or null.
func fieldValue(item interface{}, field string) interface{} {
	var m map[string]interface{}
	if direct, ok := item.(map[string]interface{}); ok {
		m = direct
	} else {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil
		}
	}
	v, ok := m[field]
	if !ok {
		return nil
	}
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	return v
}

func compareValues(col *collate.Collator, a, b interface{}) int {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			return col.CompareString(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return boolRank(av) - boolRank(bv)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

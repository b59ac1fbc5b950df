package testhelpers

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// ========================================
// JSON Assertion Helpers
// ========================================

// JSONPath walks a decoded JSON document along a dotted path such as
// "items.0.id". Array elements are addressed by index.
func JSONPath(doc interface{}, path string) (interface{}, bool) {
	cur := doc
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// AssertJSONPath checks that the value at path of jsonStr equals expected.
// Both sides are compared in their JSON encoding so 3 and 3.0 are equal.
func AssertJSONPath(t *testing.T, jsonStr, path string, expected interface{}) {
	t.Helper()

	var doc interface{}
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	actual, ok := JSONPath(doc, path)
	if !ok {
		t.Errorf("JSON has no value at %q: %s", path, jsonStr)
		return
	}

	expectedJSON, _ := json.Marshal(expected)
	actualJSON, _ := json.Marshal(actual)
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON %q mismatch\nexpected: %s\nactual: %s", path, expectedJSON, actualJSON)
	}
}

// AssertJSONContainsKey checks if a JSON object contains a specific key
func AssertJSONContainsKey(t *testing.T, jsonStr string, key string, msg string) {
	t.Helper()

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &obj); err != nil {
		t.Fatalf("%s: failed to parse JSON: %v", msg, err)
	}

	if _, exists := obj[key]; !exists {
		t.Errorf("%s: JSON does not contain key %q", msg, key)
	}
}

// ========================================
// Concurrent Testing Helpers
// ========================================

// ConcurrentTest runs a function concurrently multiple times and waits for completion
func ConcurrentTest(t *testing.T, goroutines int, fn func(workerID int)) {
	t.Helper()

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			fn(id)
		}(i)
	}

	wg.Wait()
}

// ========================================
// Slice Helpers
// ========================================

// AssertSliceContains checks if a slice contains a specific element
func AssertSliceContains[T comparable](t *testing.T, slice []T, elem T, msg string) {
	t.Helper()

	if !slices.Contains(slice, elem) {
		t.Errorf("%s: slice does not contain %v", msg, elem)
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/hebec-shop/internal/domain"
)

var ErrUnexpectedShape = errors.New("unexpected list response shape")

// keys that may wrap the item array, in lookup order
var listKeys = []string{"items", "data", "content", "results", "rows"}

// keys that may carry the total count
var totalKeys = []string{"total", "totalElements", "totalItems", "count"}

const maxListDepth = 3

// NormalizeList maps every list shape the Hebec API is known to return
// ([...], {data:[...]}, {items,total}, {data:{items,total}}, {content,totalElements}, ...)
// to a single Page. A missing total defaults to the number of items.
func NormalizeList[T any](raw []byte) (domain.Page[T], error) {
	arr, total, err := extractList(raw, 0)
	if err != nil {
		return domain.Page[T]{}, err
	}

	items := make([]T, 0)
	if arr != nil {
		if err := json.Unmarshal(arr, &items); err != nil {
			return domain.Page[T]{}, fmt.Errorf("failed to decode list items: %w", err)
		}
	}

	page := domain.Page[T]{Items: items, Total: len(items)}
	if total != nil {
		page.Total = *total
	}
	return page, nil
}

func extractList(raw json.RawMessage, depth int) (json.RawMessage, *int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil, nil
	}

	switch trimmed[0] {
	case '[':
		return trimmed, nil, nil
	case '{':
	default:
		return nil, nil, ErrUnexpectedShape
	}
	if depth >= maxListDepth {
		return nil, nil, ErrUnexpectedShape
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}

	total := readTotal(obj)
	for _, key := range listKeys {
		inner, ok := obj[key]
		if !ok {
			continue
		}
		arr, innerTotal, err := extractList(inner, depth+1)
		if err != nil {
			return nil, nil, err
		}
		if innerTotal != nil {
			total = innerTotal
		}
		return arr, total, nil
	}
	return nil, nil, ErrUnexpectedShape
}

func readTotal(obj map[string]json.RawMessage) *int {
	for _, key := range totalKeys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		var n int
		if err := json.Unmarshal(v, &n); err == nil {
			return &n
		}
	}
	return nil
}

// unwrapObject returns the object under "data" when the payload is an envelope.
func unwrapObject(raw []byte) []byte {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	if inner, ok := obj["data"]; ok {
		if t := bytes.TrimSpace(inner); len(t) > 0 && t[0] == '{' {
			return t
		}
	}
	return raw
}

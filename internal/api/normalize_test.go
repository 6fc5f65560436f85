package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type named struct {
	Name string `json:"name"`
}

func TestNormalizeList_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantNames []string
		wantTotal int
	}{
		{"bare array", `[{"name":"a"},{"name":"b"}]`, []string{"a", "b"}, 2},
		{"data array", `{"data":[{"name":"a"}]}`, []string{"a"}, 1},
		{"items with total", `{"items":[{"name":"a"}],"total":42}`, []string{"a"}, 42},
		{"data wrapping items", `{"data":{"items":[{"name":"a"}],"total":7}}`, []string{"a"}, 7},
		{"data wrapping data", `{"data":{"data":[{"name":"a"},{"name":"b"}],"total":9}}`, []string{"a", "b"}, 9},
		{"spring page", `{"content":[{"name":"a"}],"totalElements":120}`, []string{"a"}, 120},
		{"outer total kept", `{"total":5,"data":[{"name":"a"}]}`, []string{"a"}, 5},
		{"null data", `{"data":null}`, nil, 0},
		{"empty array", `[]`, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := NormalizeList[named]([]byte(tt.raw))
			require.NoError(t, err)

			names := make([]string, 0, len(page.Items))
			for _, it := range page.Items {
				names = append(names, it.Name)
			}
			if tt.wantNames == nil {
				assert.Empty(t, names)
			} else {
				assert.Equal(t, tt.wantNames, names)
			}
			assert.Equal(t, tt.wantTotal, page.Total)
			assert.NotNil(t, page.Items)
		})
	}
}

func TestNormalizeList_RejectsUnknownShapes(t *testing.T) {
	for _, raw := range []string{`"oops"`, `{"foo":[1]}`, `42`, `{"data":{"data":{"data":{"data":[]}}}}`} {
		_, err := NormalizeList[named]([]byte(raw))
		assert.ErrorIs(t, err, ErrUnexpectedShape, raw)
	}
}

func TestUnwrapObject(t *testing.T) {
	assert.JSONEq(t, `{"id":1}`, string(unwrapObject([]byte(`{"data":{"id":1}}`))))
	assert.JSONEq(t, `{"id":1}`, string(unwrapObject([]byte(`{"id":1}`))))
	assert.JSONEq(t, `{"data":[1]}`, string(unwrapObject([]byte(`{"data":[1]}`))))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "out of stock", errorMessage([]byte(`{"message":"out of stock"}`)))
	assert.Equal(t, "bad phone", errorMessage([]byte(`{"error":"bad phone"}`)))
	assert.Equal(t, "nested", errorMessage([]byte(`{"error":{"message":"nested"}}`)))
	assert.Equal(t, "", errorMessage([]byte(`<html>502</html>`)))
	assert.Equal(t, "", errorMessage([]byte(`{}`)))
}

package tooltip

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	h := New(Light)
	testCases := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "string", in: "hello", want: "hello"},
		{name: "number", in: 1.5, want: "1.5"},
		{name: "large number", in: 1e21, want: "1000000000000000000000"},
		{name: "bool", in: true, want: "true"},
		{name: "object sorted by key", in: map[string]any{"y": 2.0, "x": "a", "n": nil}, want: "n: null\nx: a\ny: 2"},
		{name: "nested", in: map[string]any{"v": []any{1.0, 2.0}}, want: "v: [1,2]"},
		{name: "NaN is not memoized", in: math.NaN(), want: "NaN"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, h.Format(tc.in))
		})
	}
}

func TestFormat_Memoizes(t *testing.T) {
	h := New(Dark)
	a := h.Format(map[string]any{"a": 1.0})
	b := h.Format(map[string]any{"a": 1.0})
	assert.Equal(t, a, b)
	assert.Len(t, h.memo, 1)

	for i := 0; i < maxEntries; i++ {
		h.Format(float64(i))
	}
	assert.LessOrEqual(t, len(h.memo), maxEntries)
}

func TestTheme(t *testing.T) {
	assert.Equal(t, Dark, ThemeFor(true))
	assert.Equal(t, Light, ThemeFor(false))

	text, bg := New(Dark).Colors()
	assert.Equal(t, "#fff", text)
	assert.Equal(t, "#333", bg)
	assert.Equal(t, Light, New(Light).Theme())
}

// Package tooltip formats mark tooltip values into label text.
package tooltip

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Theme is the tooltip color scheme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// ThemeFor picks the scheme matching the host theme.
func ThemeFor(dark bool) Theme {
	if dark {
		return Dark
	}
	return Light
}

// maxEntries bounds the memo; it is cleared when full.
const maxEntries = 4096

// Handler turns tooltip values into text. It is safe for concurrent use.
type Handler struct {
	theme Theme

	mu   sync.Mutex
	memo map[string]string
}

// New creates a Handler for theme.
func New(theme Theme) *Handler {
	return &Handler{theme: theme, memo: make(map[string]string)}
}

// Theme returns the handler's color scheme.
func (h *Handler) Theme() Theme { return h.theme }

// Colors returns the text and background colors of the scheme.
func (h *Handler) Colors() (text, background string) {
	if h.theme == Dark {
		return "#fff", "#333"
	}
	return "#000", "#fff"
}

// Format renders v. Objects become one "key: value" line per entry, sorted
// by key; other values render as themselves. nil renders as the empty
// string.
func (h *Handler) Format(v any) string {
	if v == nil {
		return ""
	}
	key, err := json.Marshal(v)
	if err != nil {
		return format(v)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.memo[string(key)]; ok {
		return s
	}
	if len(h.memo) >= maxEntries {
		h.memo = make(map[string]string)
	}
	s := format(v)
	h.memo[string(key)] = s
	return s
}

func format(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return value(v)
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + value(obj[k])
	}
	return strings.Join(lines, "\n")
}

func value(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(raw)
	}
}

package live

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/vegapanel/internal/engine"
	"github.com/vk/vegapanel/internal/frame"
	"github.com/vk/vegapanel/internal/panel"
	"github.com/zishang520/socket.io/v2/socket"
)

type panels map[string]*panel.Panel

func (m panels) Panel(id string) (*panel.Panel, bool) {
	p, ok := m[id]
	return p, ok
}

type recorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *recorder) emit(_ string, f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recorder) all() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

func wait(t *testing.T, ch <-chan error) {
	t.Helper()
	select {
	case err := <-ch:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("render did not complete")
	}
}

func hub(t *testing.T) (*Hub, *recorder, *panel.Panel) {
	t.Helper()
	p := panel.New("1", "Panel", panel.DefaultValue(), panel.NewEditor())
	rec := &recorder{}
	h := newHub(context.Background(), panels{"1": p}, rec)
	t.Cleanup(h.Close)
	return h, rec, p
}

func TestHub_JoinPaintsRoom(t *testing.T) {
	h, rec, p := hub(t)

	ch, err := h.Join("1", 640, 480)
	require.NoError(t, err)
	wait(t, ch)
	frames := rec.all()
	require.Len(t, frames, 1)
	assert.Contains(t, frames[0].SVG, engine.MarkerNoData)
	assert.Equal(t, 640, frames[0].Width)
	_, err = ulid.Parse(frames[0].ID)
	require.NoError(t, err)

	p.SetFrames([]frame.Frame{{
		RefID: "A",
		Fields: []frame.Field{
			{Name: "time", Type: frame.Time, Values: []any{1.0, 2.0}},
			{Name: "some_value", Type: frame.Number, Values: []any{1.0, 3.0}},
		},
	}})
	wait(t, h.Refresh("1"))
	frames = rec.all()
	require.Len(t, frames, 2)
	assert.Contains(t, frames[1].SVG, "<svg")
	assert.NotEqual(t, frames[0].ID, frames[1].ID)
}

func TestHub_UnknownPanel(t *testing.T) {
	h, _, _ := hub(t)
	_, err := h.Join("9", 10, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown panel '9'")
}

func TestHub_LastLeaveUnmounts(t *testing.T) {
	h, rec, _ := hub(t)

	for range 2 {
		ch, err := h.Join("1", 100, 100)
		require.NoError(t, err)
		wait(t, ch)
	}
	assert.Equal(t, 2, h.Watched("1"))

	h.Leave("1")
	assert.Equal(t, 1, h.Watched("1"))
	h.Leave("1")
	assert.Equal(t, 0, h.Watched("1"))

	n := len(rec.all())
	wait(t, h.Refresh("1"))
	wait(t, h.Resize("1", 50, 50))
	assert.Len(t, rec.all(), n, "unwatched panels are not rendered")
	h.Leave("1")
}

func TestServer_ResizeOnlyWatchedPanel(t *testing.T) {
	h, rec, p := hub(t)
	other := panel.New("2", "Other", panel.DefaultValue(), panel.NewEditor())
	h.panels = panels{"1": p, "2": other}
	s := &Server{Hub: h, watching: map[socket.SocketId]string{"a": "1"}}
	p.SetFrames([]frame.Frame{{
		RefID: "A",
		Fields: []frame.Field{
			{Name: "time", Type: frame.Time, Values: []any{1.0, 2.0}},
			{Name: "some_value", Type: frame.Number, Values: []any{1.0, 3.0}},
		},
	}})

	ch, err := h.Join("1", 100, 100)
	require.NoError(t, err)
	wait(t, ch)
	ch, err = h.Join("2", 100, 100)
	require.NoError(t, err)
	wait(t, ch)
	n := len(rec.all())

	_, err = s.resize("a", Viewport{Panel: "2", Width: 999, Height: 999})
	assert.EqualError(t, err, "not watching panel '2'")
	_, err = s.resize("b", Viewport{Panel: "1", Width: 999, Height: 999})
	assert.EqualError(t, err, "not watching panel '1'")
	assert.Len(t, rec.all(), n)

	ch, err = s.resize("a", Viewport{Panel: "1", Width: 300, Height: 200})
	require.NoError(t, err)
	wait(t, ch)
	frames := rec.all()
	require.Greater(t, len(frames), n)
	last := frames[len(frames)-1]
	assert.Equal(t, "1", last.Panel)
	assert.Equal(t, 300, last.Width)
}

func TestParseViewport(t *testing.T) {
	testCases := []struct {
		name    string
		args    []any
		want    Viewport
		wantErr string
	}{
		{name: "full", args: []any{map[string]any{"panel": "1", "width": 300.0, "height": 200.0}}, want: Viewport{Panel: "1", Width: 300, Height: 200}},
		{name: "huge size", args: []any{map[string]any{"panel": "1", "width": 1e12, "height": -5.0}}, want: Viewport{Panel: "1", Width: engine.MaxSize}},
		{name: "no size", args: []any{map[string]any{"panel": "1"}}, want: Viewport{Panel: "1"}},
		{name: "empty", wantErr: "no payload"},
		{name: "not an object", args: []any{"1"}, wantErr: "must be an object"},
		{name: "no panel", args: []any{map[string]any{"width": 1.0}}, wantErr: "no 'panel'"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseViewport(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeFrame(t *testing.T) {
	f, ok := decodeFrame([]any{map[string]any{"id": "x", "panel": "1", "width": 4.0, "height": 3.0, "svg": "<svg/>"}})
	require.True(t, ok)
	assert.Equal(t, Frame{ID: "x", Panel: "1", Width: 4, Height: 3, SVG: "<svg/>"}, f)

	_, ok = decodeFrame([]any{map[string]any{"id": "x"}})
	assert.False(t, ok)
	_, ok = decodeFrame(nil)
	assert.False(t, ok)
}

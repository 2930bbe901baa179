package live

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/vk/vegapanel/internal/ctxlog"
	"github.com/vk/vegapanel/internal/engine"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

// Event names sent by watchers.
const (
	WatchEvent  = "watch"
	ResizeEvent = "resize"
	ErrorEvent  = "watch_error"
)

// Viewport is the payload of the watch and resize events.
type Viewport struct {
	Panel  string `json:"panel"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// parseViewport reads an event payload as decoded by socket.io.
func parseViewport(args []any) (Viewport, error) {
	if len(args) == 0 {
		return Viewport{}, fmt.Errorf("event has no payload")
	}
	m, ok := args[0].(map[string]any)
	if !ok {
		return Viewport{}, fmt.Errorf("payload must be an object, got %T", args[0])
	}
	var v Viewport
	if v.Panel, ok = m["panel"].(string); !ok || v.Panel == "" {
		return Viewport{}, fmt.Errorf("payload has no 'panel'")
	}
	v.Width = dimension(m["width"])
	v.Height = dimension(m["height"])
	return v, nil
}

func dimension(v any) int {
	switch n := v.(type) {
	case float64:
		return int(max(0, min(n, engine.MaxSize)))
	case int:
		return engine.ClampSize(n)
	case int64:
		return int(max(0, min(n, engine.MaxSize)))
	}
	return 0
}

// Server is the socket.io endpoint of the hub.
type Server struct {
	*Hub
	io      *socket.Server
	handler http.Handler

	mu       sync.Mutex
	watching map[socket.SocketId]string
}

// NewServer creates the endpoint. Mount Handler under /socket.io/.
func NewServer(ctx context.Context, panels Panels) *Server {
	opts := socket.DefaultServerOptions()
	opts.SetCors(&types.Cors{Origin: "*", Credentials: true})
	s := &Server{
		io:       socket.NewServer(nil, opts),
		watching: make(map[socket.SocketId]string),
	}
	s.Hub = newHub(ctx, panels, s)
	s.handler = s.io.ServeHandler(opts)
	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.attach(ctx, client)
	})
	return s
}

// Handler serves the socket.io protocol.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) attach(ctx context.Context, client *socket.Socket) {
	logger := ctxlog.FromContext(ctx).With("sid", client.Id())
	logger.Debug("Watcher connected.")

	client.On(WatchEvent, func(args ...any) {
		v, err := parseViewport(args)
		if err != nil {
			client.Emit(ErrorEvent, err.Error())
			return
		}
		s.leave(client)
		// The room is joined first; the first paint may happen inside Join.
		client.Join(socket.Room(v.Panel))
		if _, err := s.Join(v.Panel, v.Width, v.Height); err != nil {
			client.Leave(socket.Room(v.Panel))
			logger.Warn("Watch request rejected.", "panel", v.Panel, "error", err)
			client.Emit(ErrorEvent, err.Error())
			return
		}
		s.mu.Lock()
		s.watching[client.Id()] = v.Panel
		s.mu.Unlock()
	})
	client.On(ResizeEvent, func(args ...any) {
		v, err := parseViewport(args)
		if err != nil {
			client.Emit(ErrorEvent, err.Error())
			return
		}
		if _, err := s.resize(client.Id(), v); err != nil {
			client.Emit(ErrorEvent, err.Error())
		}
	})
	client.On("disconnect", func(...any) {
		s.leave(client)
		logger.Debug("Watcher disconnected.")
	})
}

// resize forwards a viewport change from a socket. Only the panel the socket
// watches can be resized by it.
func (s *Server) resize(id socket.SocketId, v Viewport) (<-chan error, error) {
	s.mu.Lock()
	watched, ok := s.watching[id]
	s.mu.Unlock()
	if !ok || watched != v.Panel {
		return nil, fmt.Errorf("not watching panel '%s'", v.Panel)
	}
	return s.Resize(v.Panel, v.Width, v.Height), nil
}

func (s *Server) leave(client *socket.Socket) {
	s.mu.Lock()
	id, ok := s.watching[client.Id()]
	delete(s.watching, client.Id())
	s.mu.Unlock()
	if !ok {
		return
	}
	client.Leave(socket.Room(id))
	s.Leave(id)
}

func (s *Server) emit(panelID string, f Frame) {
	s.io.To(socket.Room(panelID)).Emit(FrameEvent, f)
}

// Close stops every room and disconnects the watchers.
func (s *Server) Close() {
	s.Hub.Close()
	s.io.Close(nil)
}

package live

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/vegapanel/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// WatchOptions configures Watch.
type WatchOptions struct {
	URL                string
	Panel              string
	Width, Height      int
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Watch connects to a server, watches one panel and calls onFrame for every
// render until ctx is done.
func Watch(ctx context.Context, o WatchOptions, onFrame func(Frame)) error {
	logger := ctxlog.FromContext(ctx).With("url", o.URL, "panel", o.Panel)

	parsedURL, err := url.Parse(o.URL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification.")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	io := socket.NewManager(baseURL, opts).Socket("/", opts)
	defer io.Disconnect()

	connected := make(chan error, 1)
	failures := make(chan error, 1)
	viewport := map[string]any{"panel": o.Panel, "width": o.Width, "height": o.Height}

	io.On(types.EventName("connect"), func(...any) {
		logger.Info("🔌 Connected.", "sid", io.Id())
		io.Emit(WatchEvent, viewport)
		select {
		case connected <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})
	io.On(types.EventName(ErrorEvent), func(args ...any) {
		msg := "watch rejected"
		if len(args) > 0 {
			msg = fmt.Sprint(args[0])
		}
		select {
		case failures <- fmt.Errorf("server: %s", msg):
		default:
		}
	})
	io.On(types.EventName(FrameEvent), func(args ...any) {
		if f, ok := decodeFrame(args); ok {
			onFrame(f)
		}
	})

	io.Connect()

	timeout := o.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	select {
	case err := <-connected:
		if err != nil {
			return fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timed out after %v waiting for socket.io connection", timeout)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-failures:
		return err
	}
}

func decodeFrame(args []any) (Frame, bool) {
	if len(args) == 0 {
		return Frame{}, false
	}
	m, ok := args[0].(map[string]any)
	if !ok {
		return Frame{}, false
	}
	var f Frame
	f.ID, _ = m["id"].(string)
	f.Panel, _ = m["panel"].(string)
	f.SVG, _ = m["svg"].(string)
	f.Width = dimension(m["width"])
	f.Height = dimension(m["height"])
	return f, f.SVG != ""
}

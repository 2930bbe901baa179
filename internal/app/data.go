package app

import (
	"context"
	"fmt"

	"github.com/vk/vegapanel/internal/ctxlog"
	"github.com/vk/vegapanel/internal/frame"
)

// SetFrames replaces a panel's data and refreshes its watchers. It
// implements ingest.Sink.
func (a *App) SetFrames(ctx context.Context, id string, frames []frame.Frame) error {
	p, ok := a.Panel(id)
	if !ok {
		return fmt.Errorf("unknown panel '%s'", id)
	}
	p.SetFrames(frames)
	_, warnings := frame.Tables(frames)
	for _, w := range warnings {
		ctxlog.FromContext(ctx).Warn("Frame cannot be used.", "panel", id, "reason", w)
	}
	a.live.Refresh(id)
	return nil
}

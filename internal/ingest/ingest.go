// Package ingest receives panel data frames from NATS.
//
// Each message on <prefix>.<panelID> carries a JSON array of frames that
// replaces the panel's data.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/vk/vegapanel/internal/ctxlog"
	"github.com/vk/vegapanel/internal/frame"
)

// Sink receives the decoded frames of a panel.
type Sink interface {
	SetFrames(ctx context.Context, panelID string, frames []frame.Frame) error
}

// Subject returns the subject frames for panelID are published on.
func Subject(prefix, panelID string) string {
	return prefix + "." + panelID
}

// Decode reads one data message. The panel id is the last subject token.
func Decode(prefix, subject string, data []byte) (string, []frame.Frame, error) {
	id, ok := strings.CutPrefix(subject, prefix+".")
	if !ok || id == "" || strings.Contains(id, ".") {
		return "", nil, fmt.Errorf("subject '%s' is not of the form %s.<panel>", subject, prefix)
	}
	frames, err := frame.Decode(data)
	if err != nil {
		return "", nil, fmt.Errorf("panel '%s': %w", id, err)
	}
	return id, frames, nil
}

// Subscriber feeds frames from NATS into a Sink.
type Subscriber struct {
	conn   *nats.Conn
	prefix string
	sink   Sink
}

// Connect dials the NATS server at url.
func Connect(url, prefix string, sink Sink) (*Subscriber, error) {
	conn, err := nats.Connect(url, nats.Name("vegapanel"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Subscriber{conn: conn, prefix: prefix, sink: sink}, nil
}

// Run consumes messages until ctx is done, then closes the connection.
func (s *Subscriber) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	subject := Subject(s.prefix, "*")
	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		s.handle(ctx, logger, msg)
	})
	if err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to subscribe to '%s': %w", subject, err)
	}
	logger.Info("📥 Ingest subscribed.", "subject", subject)

	<-ctx.Done()
	_ = sub.Unsubscribe()
	s.conn.Close()
	logger.Info("Ingest stopped.")
	return nil
}

func (s *Subscriber) handle(ctx context.Context, logger *slog.Logger, msg *nats.Msg) {
	id, frames, err := Decode(s.prefix, msg.Subject, msg.Data)
	if err != nil {
		logger.Warn("Dropping data message.", "subject", msg.Subject, "error", err)
		return
	}
	if err := s.sink.SetFrames(ctx, id, frames); err != nil {
		logger.Warn("Data message was not applied.", "panel", id, "error", err)
		return
	}
	logger.Debug("Panel data replaced.", "panel", id, "frames", len(frames))
}

// Publish sends frames for panelID.
func Publish(conn *nats.Conn, prefix, panelID string, frames []frame.Frame) error {
	raw, err := json.Marshal(frames)
	if err != nil {
		return fmt.Errorf("encoding frames: %w", err)
	}
	return conn.Publish(Subject(prefix, panelID), raw)
}

// Command vegawatch watches a live panel and writes every render to a file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vk/vegapanel/internal/cli"
	"github.com/vk/vegapanel/internal/ctxlog"
	"github.com/vk/vegapanel/internal/live"
)

type options struct {
	live.WatchOptions
	Out string
}

func parse(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("vegawatch", flag.ContinueOnError)
	fs.SetOutput(output)
	o := &options{}
	fs.StringVar(&o.URL, "url", "http://localhost:8080", "Base URL of the vegapanel server.")
	fs.StringVar(&o.Panel, "panel", "", "Id of the panel to watch.")
	fs.IntVar(&o.Width, "width", 800, "Viewport width.")
	fs.IntVar(&o.Height, "height", 400, "Viewport height.")
	fs.BoolVar(&o.InsecureSkipVerify, "insecure-skip-verify", false, "Skip TLS certificate verification.")
	fs.StringVar(&o.Out, "out", "panel.svg", "File each render is written to.")
	if err := fs.Parse(args); err != nil {
		return nil, &cli.ExitError{Code: 2, Message: err.Error()}
	}
	if o.Panel == "" {
		return nil, &cli.ExitError{Code: 2, Message: "-panel is required"}
	}
	if o.Width <= 0 || o.Height <= 0 {
		return nil, &cli.ExitError{Code: 2, Message: "-width and -height must be positive"}
	}
	return o, nil
}

// writeFrame replaces out atomically with the frame's SVG.
func writeFrame(out string, f live.Frame) error {
	tmp, err := os.CreateTemp(filepath.Dir(out), ".vegawatch-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(f.SVG); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), out)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	o, err := parse(os.Args[1:], os.Stderr)
	if err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)

	err = live.Watch(ctx, o.WatchOptions, func(f live.Frame) {
		if err := writeFrame(o.Out, f); err != nil {
			logger.Error("Writing render failed.", "error", err)
			return
		}
		logger.Info("🖼️ Render written.", "id", f.ID, "file", o.Out, "bytes", len(f.SVG))
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

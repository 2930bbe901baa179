// Command vegafeed publishes a frames file to a panel over NATS.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/vk/vegapanel/internal/cli"
	"github.com/vk/vegapanel/internal/config"
	"github.com/vk/vegapanel/internal/frame"
	"github.com/vk/vegapanel/internal/ingest"
)

type options struct {
	URL    string
	Prefix string
	Panel  string
	File   string
}

func parse(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("vegafeed", flag.ContinueOnError)
	fs.SetOutput(output)
	o := &options{}
	fs.StringVar(&o.URL, "nats-url", nats.DefaultURL, "NATS server.")
	fs.StringVar(&o.Prefix, "prefix", config.DefaultPrefix, "Subject prefix the server subscribes to.")
	fs.StringVar(&o.Panel, "panel", "", "Id of the panel to feed.")
	if err := fs.Parse(args); err != nil {
		return nil, &cli.ExitError{Code: 2, Message: err.Error()}
	}
	if o.Panel == "" || fs.NArg() != 1 {
		return nil, &cli.ExitError{Code: 2, Message: "usage: vegafeed -panel ID FRAMES_JSON"}
	}
	o.File = fs.Arg(0)
	return o, nil
}

func run(args []string, output io.Writer) error {
	o, err := parse(args, output)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(o.File)
	if err != nil {
		return err
	}
	frames, err := frame.Decode(raw)
	if err != nil {
		return err
	}

	conn, err := nats.Connect(o.URL, nats.Name("vegafeed"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer conn.Close()
	if err := ingest.Publish(conn, o.Prefix, o.Panel, frames); err != nil {
		return err
	}
	if err := conn.Flush(); err != nil {
		return fmt.Errorf("flushing NATS connection: %w", err)
	}
	slog.Info("📤 Frames published.", "subject", ingest.Subject(o.Prefix, o.Panel), "frames", len(frames))
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

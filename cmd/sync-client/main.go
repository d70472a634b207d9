package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	synchub "spinsoul/internal/sync"
	"spinsoul/pkg/logging"
	"spinsoul/pkg/utils"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP sync server address")
	only := flag.String("only", "", "event type prefix to show, e.g. release or artist")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	flag.Parse()

	log := logging.New(utils.LogConfig{Level: "info", Pretty: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		err := run(ctx, log, *addr, *only, *pretty, os.Stdout)
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Msg("disconnected, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func run(ctx context.Context, log zerolog.Logger, addr, only string, pretty bool, out io.Writer) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	log.Info().Str("addr", addr).Msg("connected")

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		if line := render(sc.Bytes(), only, pretty); line != "" {
			fmt.Fprintln(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

// render formats one line from the hub, or returns "" when it is filtered
// out. Lines that are not events are shown as they are.
func render(line []byte, only string, pretty bool) string {
	var ev synchub.RecordEvent
	if err := json.Unmarshal(line, &ev); err != nil || ev.Type == "" {
		return string(line)
	}
	if ev.Type == "welcome" {
		return string(line)
	}
	if only != "" && !strings.HasPrefix(ev.Type, only+".") {
		return ""
	}
	if !pretty {
		return string(line)
	}
	b, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return string(line)
	}
	return string(b)
}

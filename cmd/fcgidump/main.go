// Command fcgidump demultiplexes a captured FastCGI connection byte
// stream and prints what it finds: the begin-request record, the raw
// params channel, and the request body. The capture is read from the
// file named as the first argument, or from standard input.
//
// It is a passive inspection tool; it never speaks to a web server.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/fcgimux/demux"
	"github.com/zsiec/fcgimux/fcgi"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	in := os.Stdin
	name := "stdin"
	if len(os.Args) > 1 {
		f, err := os.Open(os.Args[1])
		if err != nil {
			slog.Error("failed to open capture", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
		name = os.Args[1]
	}

	bufLen := 4096
	if v := os.Getenv("BUF_LEN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			slog.Error("invalid BUF_LEN", "value", v)
			os.Exit(1)
		}
		bufLen = n
	}

	slog.Info("fcgidump starting", "version", version, "capture", name, "buffer", bufLen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return dump(ctx, in, bufLen, os.Stdout)
	})

	g.Go(func() error {
		// Closing the capture unblocks a demux loop stuck in a
		// transport read when a signal arrives.
		<-ctx.Done()
		in.Close()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("dump failed", "error", err)
		os.Exit(1)
	}
}

func dump(ctx context.Context, in io.Reader, bufLen int, out io.Writer) error {
	tracker := fcgi.NewTracker(nil)
	req := &fcgi.Request{}
	r := demux.NewReader(in, bufLen, fcgi.TypeParams, req,
		demux.ReaderOptDecoder(demux.NewDecoder(tracker, nil)))

	// The params channel arrives first on a responder connection, then
	// the request body on stdin.
	params, err := readChannel(ctx, r)
	if err != nil {
		return fmt.Errorf("params channel: %w", err)
	}

	fmt.Fprintf(out, "request %d  role %s  keep_conn %v\n",
		req.ID, roleName(req.Role), req.KeepConn)
	fmt.Fprintf(out, "\n%s (%d bytes)\n%s", fcgi.TypeParams, len(params), hex.Dump(params))

	r.Rebind(fcgi.TypeStdin)
	body, err := readChannel(ctx, r)
	if err != nil {
		return fmt.Errorf("stdin channel: %w", err)
	}
	fmt.Fprintf(out, "\n%s (%d bytes)\n%s", fcgi.TypeStdin, len(body), hex.Dump(body))

	st := r.Stats()
	slog.Info("capture demuxed",
		"records", st.RecordsRead,
		"skipped", st.RecordsSkipped,
		"bytes_delivered", st.BytesDelivered,
	)
	return nil
}

// readChannel drains the reader's current channel to memory.
func readChannel(ctx context.Context, r *demux.Reader) ([]byte, error) {
	var data []byte
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		data = append(data, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return data, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func roleName(role uint16) string {
	switch role {
	case fcgi.RoleResponder:
		return "responder"
	case fcgi.RoleAuthorizer:
		return "authorizer"
	case fcgi.RoleFilter:
		return "filter"
	}
	return strconv.Itoa(int(role))
}

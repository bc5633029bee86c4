// Package receiver accepts the encoded video stream the demo application
// sends once its camera and microphone permissions are granted, and writes
// it to disk.
//
// The stream is an optional 4-byte "HEVC" format marker followed by frames,
// each a 4-byte big-endian length and that many bytes of H.265 data.
package receiver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// DefaultPort is the TCP port the application streams to.
	DefaultPort = 12345

	// MaxFrameSize is the largest frame accepted. A larger length header
	// ends the connection.
	MaxFrameSize = 10 << 20

	// FormatMarker may precede the first frame.
	FormatMarker = "HEVC"

	// OutputFile is the file each connection's frames are written to,
	// truncating the previous connection's output.
	OutputFile = "output.h265"

	// DefaultReportEvery is how many frames pass between progress reports.
	DefaultReportEvery = 10
)

var (
	// ErrFrameTooLarge is returned for a length header above MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrShortFrame is returned when the stream ends inside a header or body.
	ErrShortFrame = errors.New("stream ended mid-frame")
)

// markerTimeout bounds the wait for a format marker. Senders that reconnect
// may start directly with a frame.
var markerTimeout = time.Second

// Stats describes a received stream.
type Stats struct {
	Frames  int
	Bytes   int64
	Elapsed time.Duration
	Marker  bool
}

// FPS returns the average frame rate over Elapsed.
func (s Stats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Elapsed.Seconds()
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Receive reads one stream from r and writes the frame payloads to w. It
// calls progress, when non-nil, after every reportEvery frames. A clean end
// of stream between frames returns a nil error.
//
// If r has read deadlines (a net.Conn), Receive waits at most a second for the
// format marker and clears the deadline afterwards.
func Receive(r io.Reader, w io.Writer, reportEvery int, progress func(Stats)) (Stats, error) {
	start := time.Now()
	br := bufio.NewReader(r)

	var stats Stats
	marker, err := readMarker(r, br)
	if err != nil {
		if err == io.EOF && br.Buffered() == 0 {
			return stats, nil
		}
		if err == io.EOF {
			err = ErrShortFrame
		}
		return stats, err
	}
	stats.Marker = marker

	var (
		header [4]byte
		frame  []byte
	)
	for {
		if _, err := io.ReadFull(br, header[:]); err != nil {
			stats.Elapsed = time.Since(start)
			if err == io.EOF {
				return stats, nil
			}
			return stats, shortFrame(err, "header")
		}

		size := binary.BigEndian.Uint32(header[:])
		if size > MaxFrameSize {
			stats.Elapsed = time.Since(start)
			return stats, fmt.Errorf("%w: %d bytes (limit %d)", ErrFrameTooLarge, size, MaxFrameSize)
		}
		if cap(frame) < int(size) {
			frame = make([]byte, size)
		}
		frame = frame[:size]
		if _, err := io.ReadFull(br, frame); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, shortFrame(err, fmt.Sprintf("%d-byte frame", size))
		}
		if _, err := w.Write(frame); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, err
		}

		stats.Frames++
		stats.Bytes += int64(size)
		if progress != nil && reportEvery > 0 && stats.Frames%reportEvery == 0 {
			stats.Elapsed = time.Since(start)
			progress(stats)
		}
	}
}

// readMarker consumes the format marker if the stream starts with one. A
// marker wait that times out is not an error.
func readMarker(r io.Reader, br *bufio.Reader) (bool, error) {
	d, hasDeadline := r.(readDeadliner)
	if hasDeadline {
		if err := d.SetReadDeadline(time.Now().Add(markerTimeout)); err != nil {
			return false, err
		}
		defer d.SetReadDeadline(time.Time{})
	}

	head, err := br.Peek(len(FormatMarker))
	if err != nil {
		if hasDeadline && errors.Is(err, os.ErrDeadlineExceeded) {
			return false, nil
		}
		return false, err
	}
	if !bytes.Equal(head, []byte(FormatMarker)) {
		return false, nil
	}
	_, err = br.Discard(len(FormatMarker))
	return true, err
}

func shortFrame(err error, what string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: truncated %s", ErrShortFrame, what)
	}
	return err
}

// Receiver serves streams one connection at a time, writing each to
// Dir/OutputFile.
type Receiver struct {
	// Dir is created on the first connection.
	Dir string

	// Log receives connection and progress messages. Nil discards them.
	Log io.Writer

	// ReportEvery overrides DefaultReportEvery when positive.
	ReportEvery int
}

func (rc *Receiver) logf(format string, args ...any) {
	if rc.Log != nil {
		fmt.Fprintf(rc.Log, format+"\n", args...)
	}
}

// Path returns the output file path.
func (rc *Receiver) Path() string {
	return filepath.Join(rc.Dir, OutputFile)
}

// Serve accepts connections on ln until ctx is canceled, then closes ln and
// any active connection and returns nil. Per-connection failures are logged
// and do not stop the server.
func (rc *Receiver) Serve(ctx context.Context, ln net.Listener) error {
	var (
		mu     sync.Mutex
		active net.Conn
	)
	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		mu.Lock()
		if active != nil {
			active.Close()
		}
		mu.Unlock()
	})
	defer stop()

	for {
		rc.logf("Waiting for connection...")
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		mu.Lock()
		active = conn
		mu.Unlock()
		if ctx.Err() != nil {
			conn.Close()
			return nil
		}

		stats, err := rc.handle(conn)
		conn.Close()
		mu.Lock()
		active = nil
		mu.Unlock()

		switch {
		case ctx.Err() != nil:
			rc.logf("Stopped after %d frames", stats.Frames)
			return nil
		case err != nil:
			rc.logf("Connection error after %d frames: %v", stats.Frames, err)
		default:
			rc.logf("Received %d frames (%d bytes), average FPS: %.2f", stats.Frames, stats.Bytes, stats.FPS())
		}
	}
}

func (rc *Receiver) handle(conn net.Conn) (Stats, error) {
	rc.logf("Connected to %s", conn.RemoteAddr())
	if err := os.MkdirAll(rc.Dir, 0o755); err != nil {
		return Stats{}, err
	}
	out, err := os.Create(rc.Path())
	if err != nil {
		return Stats{}, err
	}

	every := rc.ReportEvery
	if every <= 0 {
		every = DefaultReportEvery
	}
	stats, err := Receive(conn, out, every, func(s Stats) {
		rc.logf("Received %d frames, FPS: %.2f", s.Frames, s.FPS())
	})
	if stats.Marker {
		rc.logf("Received %s format marker", FormatMarker)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	rc.logf("Saved video to %s", rc.Path())
	return stats, err
}

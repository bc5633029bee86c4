package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/go-drift/permissions/cmd/permcheck/internal/adb"
	"github.com/go-drift/permissions/cmd/permcheck/internal/receiver"
)

func init() {
	RegisterCommand(&Command{
		Name:  "receive",
		Short: "Receive the video stream sent after permissions are granted",
		Long: `Listen for the H.265 stream the application sends once its camera and
microphone permissions are granted, and write it to DIR/output.h265. Each
new connection overwrites the previous file. Press Ctrl+C to stop.

Flags:
  --addr ADDR       Listen address (default: :12345)
  --dir DIR         Output directory (default: received_frames)
  --reverse         Run "adb reverse" so the device reaches this machine
  --serial SERIAL   Device serial for --reverse`,
		Usage: "permcheck receive [--addr ADDR] [--dir DIR] [--reverse [--serial SERIAL]]",
		Run:   runReceive,
	})
}

type receiveOptions struct {
	addr    string
	dir     string
	reverse bool
	serial  string
}

func parseReceiveArgs(args []string) (receiveOptions, error) {
	opts := receiveOptions{
		addr: ":" + strconv.Itoa(receiver.DefaultPort),
		dir:  "received_frames",
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "--reverse":
			if hasValue {
				return opts, fmt.Errorf("--reverse takes no value")
			}
			opts.reverse = true
			continue
		case "--addr", "--dir", "--serial":
		default:
			return opts, fmt.Errorf("unknown argument %q", arg)
		}

		if !hasValue {
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s requires a value", name)
			}
			i++
			value = args[i]
		}
		switch name {
		case "--addr":
			opts.addr = value
		case "--dir":
			opts.dir = value
		case "--serial":
			opts.serial = value
		}
	}
	if opts.serial != "" && !opts.reverse {
		return opts, fmt.Errorf("--serial only applies with --reverse")
	}
	return opts, nil
}

func runReceive(args []string) error {
	opts, err := parseReceiveArgs(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.addr, err)
	}

	if opts.reverse {
		_, portStr, err := net.SplitHostPort(ln.Addr().String())
		if err != nil {
			ln.Close()
			return err
		}
		port, _ := strconv.Atoi(portStr)
		if err := adb.NewClient(opts.serial).Reverse(ctx, port); err != nil {
			ln.Close()
			return err
		}
		fmt.Fprintf(stdout, "Forwarding device port %d to this machine\n", port)
	}

	rc := &receiver.Receiver{Dir: opts.dir, Log: stdout}
	fmt.Fprintf(stdout, "Listening on %s, saving to %s\n", ln.Addr(), rc.Path())
	if err := rc.Serve(ctx, ln); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Receiver stopped.")
	return nil
}

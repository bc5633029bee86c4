package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-drift/permissions/cmd/permcheck/internal/adb"
	"github.com/go-drift/permissions/cmd/permcheck/internal/config"
	"github.com/go-drift/permissions/pkg/permissions"
)

func init() {
	RegisterCommand(&Command{
		Name:  "status",
		Short: "Show how a permission flow resolves on a device",
		Long: `Read the application's permission state from a connected Android device
and show the result the application's permission check would produce.

The check runs as a later request unless --first is given. Requests are
shown, not sent: only the application itself can open the permission dialog.

Flags:
  --serial SERIAL   Device serial (default: device.serial from permcheck.yaml)
  --first           Evaluate as the first request of the flow`,
		Usage: "permcheck status [--serial SERIAL] [--first] [flow]",
		Run:   runStatus,
	})
}

type statusOptions struct {
	serial string
	first  bool
	flow   string
}

func parseStatusArgs(args []string) (statusOptions, error) {
	var opts statusOptions
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--first":
			opts.first = true
		case arg == "--serial":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--serial requires a device serial")
			}
			opts.serial = args[i+1]
			i++
		case strings.HasPrefix(arg, "--serial="):
			opts.serial = strings.TrimPrefix(arg, "--serial=")
		case strings.HasPrefix(arg, "-"):
			return opts, fmt.Errorf("unknown flag %q", arg)
		default:
			if opts.flow != "" {
				return opts, fmt.Errorf("only one flow may be given (got %q and %q)", opts.flow, arg)
			}
			opts.flow = arg
		}
	}
	return opts, nil
}

func runStatus(args []string) error {
	opts, err := parseStatusArgs(args)
	if err != nil {
		return err
	}

	root, err := config.FindProjectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(root)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flowName, perms, err := cfg.Flow(opts.flow)
	if err != nil {
		return err
	}

	serial := opts.serial
	if serial == "" {
		serial = cfg.Serial
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	snap, err := adb.NewClient(serial).Snapshot(ctx, cfg.AppID)
	if err != nil {
		return err
	}

	writeStatus(stdout, flowName, perms, opts.first, snap)
	return nil
}

// writeStatus evaluates the flow against snap and prints the report.
func writeStatus(w io.Writer, flowName string, perms []string, first bool, snap *adb.Snapshot) permissions.CheckResult {
	result := permissions.CheckPermissions(snap, perms, first)

	fmt.Fprintf(w, "App:     %s (sdk %d)\n", snap.AppID, snap.SDKInt)
	fmt.Fprintf(w, "Flow:    %s\n", flowName)
	if snap.SDKInt < permissions.RuntimePermissionsMinSDK {
		fmt.Fprintf(w, "         runtime permissions start at sdk %d; everything is granted at install\n", permissions.RuntimePermissionsMinSDK)
	}
	for _, p := range perms {
		state := snap.State(p)
		flags := strings.Join(state.Flags, "|")
		if flags == "" {
			flags = "-"
		}
		fmt.Fprintf(w, "  %-44s granted=%-5t rationale=%-5t flags=%s\n", p, state.Granted, state.Rationale(), flags)
	}
	fmt.Fprintf(w, "Result:  %s\n", result)
	for _, req := range snap.Requests {
		fmt.Fprintf(w, "Request: %s (code %d, not sent)\n", strings.Join(req, ", "), permissions.RequestCode)
	}
	if result == permissions.CheckResultFail && len(snap.Requests) == 0 {
		fmt.Fprintln(w, "Hint:    permanently denied or never requested; the user must enable it in app settings")
	}
	return result
}

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-drift/permissions/cmd/permcheck/internal/config"
)

func init() {
	RegisterCommand(&Command{
		Name:  "flows",
		Short: "List configured permission flows",
		Long: `List the permission flows configured in permcheck.yaml, together with
the application ID they are checked against.`,
		Usage: "permcheck flows",
		Run:   runFlows,
	})
}

func runFlows(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("flows takes no arguments")
	}
	root, err := config.FindProjectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(root)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	writeFlows(stdout, cfg)
	return nil
}

func writeFlows(w io.Writer, cfg *config.Resolved) {
	fmt.Fprintf(w, "App: %s\n", cfg.AppID)
	for _, name := range cfg.FlowNames() {
		fmt.Fprintf(w, "  %-12s %s\n", name, strings.Join(cfg.Flows[name], ", "))
	}
}

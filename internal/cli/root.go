package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/promptgate/promptgate/internal/gateway"
)

var (
	stateDir   string
	policyPath string
)

var rootCmd = &cobra.Command{
	Use:   "promptgate",
	Short: "Compliance gateway for AI requests",
	Long:  "Gates AI requests on consent and policy, sanitizes prompts, and keeps a tamper-evident audit trail suitable as compliance evidence.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "Directory for audit and consent state (default ~/.promptgate)")
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "Path to policy YAML (default <state-dir>/policy.yaml)")
}

// resolveStateDir applies the flag or falls back to ~/.promptgate.
func resolveStateDir() (string, error) {
	if stateDir != "" {
		return stateDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".promptgate"), nil
}

// openGateway opens the gateway over the resolved state directory, creating
// the directory on first use.
func openGateway() (*gateway.Gateway, error) {
	dir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create state directory: %w", err)
	}
	cfgPath := policyPath
	if cfgPath == "" {
		cfgPath = filepath.Join(dir, "policy.yaml")
	}
	return gateway.Open(gateway.Config{StateDir: dir, PolicyPath: cfgPath})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

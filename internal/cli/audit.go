package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptgate/promptgate/internal/audit"
	"github.com/promptgate/promptgate/internal/model"
)

var (
	tailCount    int
	tailType     string
	tailSeverity string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditTailCmd.Flags().IntVarP(&tailCount, "lines", "n", 10, "Number of recent entries to show")
	auditTailCmd.Flags().StringVar(&tailType, "type", "", "Only show entries of this event type")
	auditTailCmd.Flags().StringVar(&tailSeverity, "severity", "", "Only show entries of this severity")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit trail operations",
	Long:  "Commands for verifying and inspecting the hash-chained audit trail.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify hash chain integrity of the audit trail",
	Long:  "Recomputes every entry's hash against its predecessor.\nExits 0 if valid, 1 if tampered.",
	RunE:  runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent audit entries",
	RunE:  runAuditTail,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	gw, err := openGateway()
	if err != nil {
		return err
	}
	if gw.VerifyIntegrity() {
		fmt.Printf("OK: %s\n", gw.AuditLog().Path())
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED: chain verification failed for %s\n", gw.AuditLog().Path())
	os.Exit(1)
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	gw, err := openGateway()
	if err != nil {
		return err
	}

	f := audit.Filter{Limit: tailCount}
	if tailType != "" {
		t, ok := model.ParseEventType(tailType)
		if !ok {
			return fmt.Errorf("unknown event type %q", tailType)
		}
		f.Type = t
	}
	if tailSeverity != "" {
		s, ok := model.ParseSeverity(tailSeverity)
		if !ok {
			return fmt.Errorf("unknown severity %q", tailSeverity)
		}
		f.Severity = s
	}

	for _, entry := range gw.AuditLog().Events(f) {
		out, _ := json.MarshalIndent(entry, "", "  ")
		fmt.Println(string(out))
	}
	return nil
}

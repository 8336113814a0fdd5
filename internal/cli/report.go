package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/promptgate/promptgate/internal/model"
)

var (
	reportStart  string
	reportEnd    string
	reportExport bool
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportStart, "start", "", "Window start (RFC 3339; default 30 days ago)")
	reportCmd.Flags().StringVar(&reportEnd, "end", "", "Window end (RFC 3339; default now)")
	reportCmd.Flags().BoolVar(&reportExport, "export", false, "Write the report to the reports directory")
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a compliance report",
	Long:  "Summarizes the audit trail over the window: chain integrity, incidents,\nAI privacy score, policy compliance, and event statistics.",
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	var start, end time.Time
	var err error
	if reportStart != "" {
		if start, err = model.ParseTimestamp(reportStart); err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
	}
	if reportEnd != "" {
		if end, err = model.ParseTimestamp(reportEnd); err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
	}

	gw, err := openGateway()
	if err != nil {
		return err
	}

	r := gw.BuildReport(start, end)
	out, _ := json.MarshalIndent(r, "", "  ")
	fmt.Println(string(out))

	if reportExport {
		path, err := gw.ExportReport(r)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s\n", path)
	}
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptgate/promptgate/internal/model"
)

func init() {
	rootCmd.AddCommand(evaluateCmd)
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <subject> <purpose> [prompt]",
	Short: "Run an AI request through the compliance pipeline",
	Long:  "Checks consent and policy for the subject, sanitizes the prompt, and records\nthe outcome in the audit trail. The prompt is read from stdin when omitted.\nExits 0 on allow, 2 on deny.",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	var prompt string
	if len(args) == 3 {
		prompt = args[2]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read prompt from stdin: %w", err)
		}
		prompt = string(data)
	}

	gw, err := openGateway()
	if err != nil {
		return err
	}

	ev, err := gw.EvaluateRequest(args[0], args[1], prompt)
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(map[string]any{
		"decision":         string(ev.Decision),
		"reason":           ev.Reason,
		"sanitized_prompt": ev.SanitizedPrompt,
	}, "", "  ")
	fmt.Println(string(out))

	if ev.Decision != model.Allow {
		os.Exit(2)
	}
	return nil
}

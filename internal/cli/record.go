package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/promptgate/promptgate/internal/model"
)

var (
	recordSubject string
	recordMeta    []string
)

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVar(&recordSubject, "subject", "", "Subject the event concerns")
	recordCmd.Flags().StringArrayVar(&recordMeta, "meta", nil, "Metadata as key=value (repeatable)")
}

var recordCmd = &cobra.Command{
	Use:   "record <type> <severity> <message>",
	Short: "Append an event to the audit trail",
	Long:  "Appends one event to the hash chain. The message and metadata must not\ncontain raw prompts or PII; record summaries, not material.",
	Args:  cobra.ExactArgs(3),
	RunE:  runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	typ, ok := model.ParseEventType(args[0])
	if !ok {
		return fmt.Errorf("unknown event type %q", args[0])
	}
	sev, ok := model.ParseSeverity(args[1])
	if !ok {
		return fmt.Errorf("unknown severity %q", args[1])
	}

	metadata := map[string]any{}
	for _, kv := range recordMeta {
		k, v, found := strings.Cut(kv, "=")
		if !found || k == "" {
			return fmt.Errorf("invalid --meta %q, want key=value", kv)
		}
		metadata[k] = v
	}

	gw, err := openGateway()
	if err != nil {
		return err
	}
	hash, err := gw.Record(typ, sev, args[2], metadata, recordSubject)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptgate/promptgate/internal/incident"
)

func init() {
	rootCmd.AddCommand(incidentCmd)
	incidentCmd.AddCommand(incidentClassifyCmd)
}

var incidentCmd = &cobra.Command{
	Use:   "incident",
	Short: "Incident classification",
}

var incidentClassifyCmd = &cobra.Command{
	Use:   "classify <service-type> <data-risk> <description>",
	Short: "Classify an incident and record it in the audit trail",
	Long:  "Severity is a pure function of service criticality and data risk, so the\nsame inputs always classify the same way.\nService types: payment, authentication, database, api, ai_service, monitoring, general.\nData risks: none, low, medium, high, critical.",
	Args:  cobra.ExactArgs(3),
	RunE:  runIncidentClassify,
}

func runIncidentClassify(cmd *cobra.Command, args []string) error {
	gw, err := openGateway()
	if err != nil {
		return err
	}

	rec, err := gw.ClassifyIncident(incident.ServiceType(args[0]), incident.DataRisk(args[1]), args[2], nil)
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(rec, "", "  ")
	fmt.Println(string(out))
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var consentExpiresDays int

func init() {
	rootCmd.AddCommand(consentCmd)
	consentCmd.AddCommand(consentGrantCmd)
	consentCmd.AddCommand(consentCheckCmd)
	consentCmd.AddCommand(consentRevokeCmd)
	consentCmd.AddCommand(consentForgetCmd)
	consentGrantCmd.Flags().IntVar(&consentExpiresDays, "expires-days", 0, "Days until the grant expires (0 = never)")
}

var consentCmd = &cobra.Command{
	Use:   "consent",
	Short: "Consent registry operations",
	Long:  "Record, inspect, revoke, and erase consent for subject and purpose pairs.",
}

var consentGrantCmd = &cobra.Command{
	Use:   "grant <subject> <purpose>",
	Short: "Record consent for a subject and purpose",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := openGateway()
		if err != nil {
			return err
		}
		if err := gw.GrantConsent(args[0], args[1], consentExpiresDays); err != nil {
			return err
		}
		fmt.Printf("Granted: %s / %s\n", args[0], args[1])
		return nil
	},
}

var consentCheckCmd = &cobra.Command{
	Use:   "check <subject> <purpose>",
	Short: "Show the current consent status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := openGateway()
		if err != nil {
			return err
		}
		status := gw.CheckConsent(args[0], args[1])
		out, _ := json.MarshalIndent(map[string]string{
			"subject_id": args[0],
			"purpose":    args[1],
			"status":     string(status),
		}, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

var consentRevokeCmd = &cobra.Command{
	Use:   "revoke <subject> <purpose>",
	Short: "Revoke previously recorded consent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := openGateway()
		if err != nil {
			return err
		}
		ok, err := gw.RevokeConsent(args[0], args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no consent record for %s / %s", args[0], args[1])
		}
		fmt.Printf("Revoked: %s / %s\n", args[0], args[1])
		return nil
	},
}

var consentForgetCmd = &cobra.Command{
	Use:   "forget <subject>",
	Short: "Erase every consent record for a subject",
	Long:  "Implements the right to erasure: deletes all of the subject's consent records\nand notes the deletion in the audit trail.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := openGateway()
		if err != nil {
			return err
		}
		removed, err := gw.ForgetSubject(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d consent record(s) for %s\n", removed, args[0])
		return nil
	},
}

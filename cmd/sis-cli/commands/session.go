package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"eduassist-backend/lib/serviceutil"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session <subject-id>",
	Short: "Prints a live portal session cookie for the subject.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, _, _ := setup()

		session, err := service.GetLoginSession(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to acquire session", err)
		}
		fmt.Println(session)
	},
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"eduassist-backend/lib/serviceutil"
)

func init() {
	rootCmd.AddCommand(unenrollCmd)
}

var unenrollCmd = &cobra.Command{
	Use:   "unenroll <subject-id>",
	Short: "Deletes a subject's credential and entire stored dataset.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, st, _ := setup()

		err := st.DeleteSubject(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to unenroll subject", err)
		}
		fmt.Printf("unenrolled %s\n", args[0])
	},
}

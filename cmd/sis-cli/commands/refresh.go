package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"eduassist-backend/lib/serviceutil"
)

func init() {
	rootCmd.AddCommand(refreshCmd)
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <subject-id>",
	Short: "Runs one fetch-and-reconcile pipeline for the subject.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, _, _ := setup()

		t1 := time.Now()
		dataset, err := service.FetchAndReconcile(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("refresh failed", err)
		}
		t2 := time.Now()

		fmt.Printf(
			"reconciled %d exams, %d subject scores, %d conduct events in %.1fs\n",
			len(dataset.Exams), len(dataset.Subjects), len(dataset.Conduct),
			t2.Sub(t1).Seconds(),
		)
	},
}

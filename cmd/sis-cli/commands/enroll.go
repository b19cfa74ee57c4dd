package commands

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"eduassist-backend/lib/serviceutil"
	"eduassist-backend/services/sis"
)

func init() {
	rootCmd.AddCommand(enrollCmd)
}

var enrollCmd = &cobra.Command{
	Use:   "enroll <subject-id>",
	Short: "Stores a subject's portal credential, prompting for the password.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		subjectID := args[0]

		fmt.Fprintf(os.Stderr, "portal password for %s: ", subjectID)
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			serviceutil.Fatal("failed to read password", err)
		}

		_, st, v := setup()

		env, err := v.Wrap(password)
		if err != nil {
			serviceutil.Fatal("failed to encrypt credential", err)
		}
		err = st.PutCredential(cmd.Context(), sis.Credential{
			SubjectID: subjectID,
			Envelope:  env,
		})
		if err != nil {
			serviceutil.Fatal("failed to store credential", err)
		}

		fmt.Printf("enrolled %s (key ref %s)\n", subjectID, env.KeyRef)
	},
}

package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"eduassist-backend/lib/serviceutil"
	"eduassist-backend/services/sis"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <subject-id>",
	Short: "Prints the subject's stored dataset.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, st, _ := setup()

		dataset, err := st.ReadDataset(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to read dataset", err)
		}

		fmt.Printf(
			"%s  %s  seat %s\n",
			dataset.Student.Name, dataset.Student.ClassName, dataset.Student.SeatNumber,
		)

		renderExams(dataset.Exams)
		renderSubjects(dataset.Subjects)
		renderConduct(dataset.Conduct)
	},
}

func renderExams(exams []sis.ExamRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Semester", "Exam", "Total", "Average", "Class Rank", "Stream Rank"})

	for _, r := range exams {
		t.AppendRow(table.Row{r.Semester, r.Name, r.Total, r.Average, r.ClassRank, r.StreamRank})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderSubjects(subjects []sis.SubjectRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Exam", "Subject", "Score", "Class Avg", "Rank"})

	for _, r := range subjects {
		rank := ""
		if r.Rank > 0 {
			rank = fmt.Sprintf("%d/%d", r.Rank, r.RankOf)
		}
		t.AppendRow(table.Row{r.Exam, r.Subject, r.Score, r.ClassAverage, rank})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderConduct(events []sis.ConductRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Approved", "Incident", "Reason", "Level", "Count"})

	for _, r := range events {
		t.AppendRow(table.Row{
			r.ApprovalDate.Format("2006-01-02"),
			r.IncidentDate.Format("2006-01-02"),
			r.Reason, r.Level, r.Count,
		})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

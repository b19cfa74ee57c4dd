package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eduassist-backend/lib/configutil/sqlite"
	"eduassist-backend/lib/vault"
	"eduassist-backend/services/sis"
)

func setupStore(t *testing.T) Store {
	db, err := configsqlite.Struct{File: ":memory:"}.OpenDB(Schema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestCredentialRoundTrip(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	cred := sis.Credential{
		SubjectID: "113012",
		Envelope: vault.Envelope{
			Secret:  []byte{0x01, 0x02, 0x03},
			DataKey: []byte{0x04, 0x05},
			KeyRef:  "a6a2f7b4-0000-0000-0000-000000000000",
		},
	}
	require.NoError(t, st.PutCredential(ctx, cred))

	out, err := st.GetCredential(ctx, "113012")
	require.NoError(t, err)
	require.Equal(t, cred, out)

	_, err = st.GetCredential(ctx, "999999")
	require.Error(t, err)
}

func TestCredentialOverwrite(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	first := sis.Credential{
		SubjectID: "113012",
		Envelope:  vault.Envelope{Secret: []byte{1}, DataKey: []byte{2}, KeyRef: "old"},
	}
	require.NoError(t, st.PutCredential(ctx, first))

	second := first
	second.Envelope = vault.Envelope{Secret: []byte{3}, DataKey: []byte{4}, KeyRef: "new"}
	require.NoError(t, st.PutCredential(ctx, second))

	out, err := st.GetCredential(ctx, "113012")
	require.NoError(t, err)
	require.Equal(t, second, out)
}

func TestListSubjects(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	for _, id := range []string{"220733", "113012", "114001"} {
		err := st.PutCredential(ctx, sis.Credential{
			SubjectID: id,
			Envelope:  vault.Envelope{Secret: []byte{1}, DataKey: []byte{1}, KeyRef: id},
		})
		require.NoError(t, err)
	}

	subjects, err := st.ListSubjects(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"113012", "114001", "220733"}, subjects)
}

func sampleDataset() sis.Dataset {
	return sis.Dataset{
		Student: sis.StudentRecord{
			Name:       "王小明",
			ClassName:  "二年三班",
			SeatNumber: "12",
		},
		Exams: []sis.ExamRecord{
			{
				Semester:  "113學年度第2學期",
				Name:      "第一次平時考",
				Order:     0,
				Total:     158,
				Average:   79,
				ClassRank: 11,
			},
			{
				Semester:   "113學年度第2學期",
				Name:       "第一次段考",
				Order:      1,
				Total:      245.5,
				Average:    81.83,
				ClassRank:  9,
				StreamRank: 40,
			},
		},
		Subjects: []sis.SubjectRecord{
			{
				Semester: "113學年度第2學期",
				Exam:     "第一次段考",
				Subject:  "國文",
				Score:    85,
				Rank:     10,
				RankOf:   38,
			},
		},
		Conduct: []sis.ConductRecord{
			{
				ApprovalDate: time.Date(2025, time.February, 13, 0, 0, 0, 0, time.UTC),
				IncidentDate: time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC),
				Reason:       "熱心服務",
				Level:        "commendation",
				Count:        2,
			},
		},
	}
}

func TestApplyAndReadDataset(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	dataset := sampleDataset()

	diff := sis.ComputeDiff(sis.Dataset{}, dataset)
	require.NoError(t, st.Apply(ctx, "113012", diff))

	persisted, err := st.ReadDataset(ctx, "113012")
	require.NoError(t, err)
	require.Equal(t, dataset.Student, persisted.Student)
	require.ElementsMatch(t, dataset.Exams, persisted.Exams)
	require.ElementsMatch(t, dataset.Subjects, persisted.Subjects)
	require.ElementsMatch(t, dataset.Conduct, persisted.Conduct)

	// a second reconciliation over unchanged data is a no-op
	require.True(t, sis.ComputeDiff(persisted, dataset).Empty())
}

func TestApplyUpdatesAndDeletes(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	dataset := sampleDataset()

	require.NoError(t, st.Apply(ctx, "113012", sis.ComputeDiff(sis.Dataset{}, dataset)))

	changed := sampleDataset()
	changed.Exams = changed.Exams[1:]
	changed.Exams[0].Average = 82.5
	changed.Subjects[0].Score = 90
	changed.Conduct = nil

	persisted, err := st.ReadDataset(ctx, "113012")
	require.NoError(t, err)
	require.NoError(t, st.Apply(ctx, "113012", sis.ComputeDiff(persisted, changed)))

	persisted, err = st.ReadDataset(ctx, "113012")
	require.NoError(t, err)
	require.ElementsMatch(t, changed.Exams, persisted.Exams)
	require.ElementsMatch(t, changed.Subjects, persisted.Subjects)
	require.Empty(t, persisted.Conduct)
}

func TestApplyIsAtomic(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	dataset := sampleDataset()

	require.NoError(t, st.Apply(ctx, "113012", sis.ComputeDiff(sis.Dataset{}, dataset)))

	// the subject insert lands first inside the transaction, then the
	// duplicate conduct event violates its natural-key unique
	// constraint and everything must roll back together
	bad := sis.Diff{
		CreateSubjects: []sis.SubjectRecord{{
			Semester: "113學年度第2學期",
			Exam:     "第一次段考",
			Subject:  "數學",
			Score:    72.5,
		}},
		CreateConduct: []sis.ConductRecord{dataset.Conduct[0]},
	}
	require.Error(t, st.Apply(ctx, "113012", bad))

	persisted, err := st.ReadDataset(ctx, "113012")
	require.NoError(t, err)
	require.ElementsMatch(t, dataset.Subjects, persisted.Subjects)
	require.ElementsMatch(t, dataset.Conduct, persisted.Conduct)
}

func TestDeleteSubject(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	dataset := sampleDataset()

	require.NoError(t, st.PutCredential(ctx, sis.Credential{
		SubjectID: "113012",
		Envelope:  vault.Envelope{Secret: []byte{1}, DataKey: []byte{1}, KeyRef: "k"},
	}))
	require.NoError(t, st.Apply(ctx, "113012", sis.ComputeDiff(sis.Dataset{}, dataset)))

	require.NoError(t, st.DeleteSubject(ctx, "113012"))

	_, err := st.GetCredential(ctx, "113012")
	require.Error(t, err)
	persisted, err := st.ReadDataset(ctx, "113012")
	require.NoError(t, err)
	require.Equal(t, sis.Dataset{}, persisted)
}

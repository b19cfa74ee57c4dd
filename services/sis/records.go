package sis

import (
	"context"
	"strings"
	"time"

	"eduassist-backend/lib/vault"
)

// The portal assigns no stable identifiers to anything it renders, so
// every durable record carries a natural key composed from its own
// fields. Natural keys are plain strings so they can index maps during
// diffing; the null byte separator cannot occur in parsed cell text.

const keySep = "\x00"

// StudentRecord is the typed subset of the profile page that the
// canonical store keeps per subject.
type StudentRecord struct {
	Name       string
	ClassName  string
	SeatNumber string
}

// ExamRecord is one exam round of one semester, with the summary
// figures from the score table's trailing rows.
type ExamRecord struct {
	Semester string
	Name     string
	Order    int

	Total           float64
	WeightedTotal   float64
	Average         float64
	WeightedAverage float64
	ClassRank       int
	StreamRank      int
}

func (r ExamRecord) NaturalKey() string {
	return strings.Join([]string{r.Semester, r.Name}, keySep)
}

// SubjectRecord is one subject's result in one exam round.
type SubjectRecord struct {
	Semester string
	Exam     string
	Subject  string

	Score        float64
	ClassAverage float64
	Rank         int
	RankOf       int
}

func (r SubjectRecord) NaturalKey() string {
	return strings.Join([]string{r.Semester, r.Exam, r.Subject}, keySep)
}

// ConductRecord is one reward or punishment event. Every field except
// Count is part of the identity, so reconciliation never updates a
// conduct record in place.
type ConductRecord struct {
	ApprovalDate time.Time
	IncidentDate time.Time
	Reason       string
	Level        string
	Count        int
}

func (r ConductRecord) NaturalKey() string {
	return strings.Join([]string{
		r.ApprovalDate.UTC().Format(time.RFC3339),
		r.IncidentDate.UTC().Format(time.RFC3339),
		r.Reason,
		r.Level,
	}, keySep)
}

// Dataset is everything the canonical store holds for one subject.
type Dataset struct {
	Student  StudentRecord
	Exams    []ExamRecord
	Subjects []SubjectRecord
	Conduct  []ConductRecord
}

// Credential is a subject's stored login secret in its encrypted
// envelope form. The plaintext password never touches storage.
type Credential struct {
	SubjectID string
	Envelope  vault.Envelope
}

type CredentialStore interface {
	GetCredential(ctx context.Context, subjectID string) (Credential, error)
	PutCredential(ctx context.Context, cred Credential) error
	ListSubjects(ctx context.Context) ([]string, error)
}

// DatasetStore persists canonical datasets. Apply must be
// all-or-nothing: either the whole diff lands or none of it does.
type DatasetStore interface {
	ReadDataset(ctx context.Context, subjectID string) (Dataset, error)
	Apply(ctx context.Context, subjectID string, diff Diff) error
}

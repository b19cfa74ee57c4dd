package sis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"eduassist-backend/lib/scrapers/eschool"
)

// DocumentFetcher retrieves raw document HTML with an established
// session.
type DocumentFetcher interface {
	Fetch(ctx context.Context, session string, kind eschool.DocumentKind) (string, error)
}

type ServiceOptions struct {
	Sessions *SessionCache
	Fetcher  DocumentFetcher
	Datasets DatasetStore
	// Alerter may be nil, parse failures are then only logged.
	Alerter *Alerter
}

// Service is the pipeline orchestrator: Session -> Fetch -> Parse ->
// Reconcile, strictly in that order, one invocation per subject per
// trigger. It is the only layer that decides on retries.
type Service struct {
	sessions *SessionCache
	fetcher  DocumentFetcher
	datasets DatasetStore
	alerter  *Alerter
}

func NewService(opts ServiceOptions) Service {
	return Service{
		sessions: opts.Sessions,
		fetcher:  opts.Fetcher,
		datasets: opts.Datasets,
		alerter:  opts.Alerter,
	}
}

// GetLoginSession exposes the subject's raw session token, for
// collaborators that talk to the portal directly.
func (s Service) GetLoginSession(ctx context.Context, subjectID string) (string, error) {
	ctx, span := tracer.Start(ctx, "GetLoginSession")
	defer span.End()
	span.SetAttributes(attribute.String("subject_id", subjectID))

	return s.sessions.GetOrRefresh(ctx, subjectID)
}

// fetchDocument fetches one document, retrying exactly once after
// invalidating the cached session when the fetch looks like a session
// expiry. Any other failure propagates unmodified.
func (s Service) fetchDocument(ctx context.Context, subjectID string, kind eschool.DocumentKind) (string, error) {
	session, err := s.sessions.GetOrRefresh(ctx, subjectID)
	if err != nil {
		return "", err
	}

	html, err := s.fetcher.Fetch(ctx, session, kind)
	if errors.Is(err, eschool.ErrSessionExpired) {
		slog.DebugContext(
			ctx, "session likely expired, refreshing and retrying once",
			"subject_id", subjectID,
			"document", kind.String(),
		)
		s.sessions.Invalidate(subjectID)
		session, err = s.sessions.GetOrRefresh(ctx, subjectID)
		if err != nil {
			return "", err
		}
		html, err = s.fetcher.Fetch(ctx, session, kind)
	}
	return html, err
}

// FetchAndReconcile runs the whole pipeline for one subject and
// returns the fresh canonical dataset. The stored dataset is only
// touched when every document fetched and parsed cleanly, and then in
// one all-or-nothing transaction.
func (s Service) FetchAndReconcile(ctx context.Context, subjectID string) (Dataset, error) {
	ctx, span := tracer.Start(ctx, "FetchAndReconcile")
	defer span.End()
	span.SetAttributes(attribute.String("subject_id", subjectID))

	fail := func(err error) (Dataset, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Dataset{}, err
	}

	profileHtml, err := s.fetchDocument(ctx, subjectID, eschool.DocumentProfile)
	if err != nil {
		return fail(err)
	}
	scoresHtml, err := s.fetchDocument(ctx, subjectID, eschool.DocumentScores)
	if err != nil {
		return fail(err)
	}
	conductHtml, err := s.fetchDocument(ctx, subjectID, eschool.DocumentConduct)
	if err != nil {
		return fail(err)
	}

	profile, err := eschool.ParseProfile(profileHtml)
	if err != nil {
		return fail(s.reportParseFailure(ctx, subjectID, err))
	}
	scores, err := eschool.ParseScores(scoresHtml)
	if err != nil {
		return fail(s.reportParseFailure(ctx, subjectID, err))
	}
	conduct, err := eschool.ParseConduct(conductHtml)
	if err != nil {
		return fail(s.reportParseFailure(ctx, subjectID, err))
	}

	parsed := DatasetFromDocuments(profile, scores, conduct)

	persisted, err := s.datasets.ReadDataset(ctx, subjectID)
	if err != nil {
		return fail(fmt.Errorf("%w: %s", ErrReconciliation, err.Error()))
	}
	diff := ComputeDiff(persisted, parsed)
	if diff.Empty() {
		slog.DebugContext(ctx, "dataset unchanged", "subject_id", subjectID)
		return parsed, nil
	}

	err = s.datasets.Apply(ctx, subjectID, diff)
	if err != nil {
		return fail(fmt.Errorf("%w: %s", ErrReconciliation, err.Error()))
	}

	slog.DebugContext(
		ctx, "dataset reconciled",
		"subject_id", subjectID,
		"exam_creates", len(diff.CreateExams),
		"exam_updates", len(diff.UpdateExams),
		"exam_deletes", len(diff.DeleteExams),
		"subject_creates", len(diff.CreateSubjects),
		"subject_updates", len(diff.UpdateSubjects),
		"subject_deletes", len(diff.DeleteSubjects),
		"conduct_creates", len(diff.CreateConduct),
		"conduct_deletes", len(diff.DeleteConduct),
	)
	return parsed, nil
}

func (s Service) reportParseFailure(ctx context.Context, subjectID string, err error) error {
	slog.ErrorContext(
		ctx, "upstream markup no longer parses",
		"subject_id", subjectID,
		"err", err,
	)
	if s.alerter != nil {
		s.alerter.ParseFailure(ctx, subjectID, err)
	}
	return err
}

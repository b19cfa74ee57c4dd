package sis_test

import (
	"context"
	"crypto/rand"
	_ "embed"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eduassist-backend/lib/configutil/sqlite"
	"eduassist-backend/lib/scrapers/eschool"
	"eduassist-backend/lib/telemetry"
	"eduassist-backend/lib/vault"
	"eduassist-backend/services/sis"
	"eduassist-backend/services/sis/store"
)

//go:embed testdata/profile.html
var profileFixture string

//go:embed testdata/scores.html
var scoresFixture string

//go:embed testdata/conduct.html
var conductFixture string

// fakeUpstream stands in for both the acquirer and the fetcher. It
// hands out numbered sessions and can expire them all at once.
type fakeUpstream struct {
	logins  atomic.Int64
	fetches atomic.Int64
	expired atomic.Int64

	conductOverride string
}

func (u *fakeUpstream) Login(ctx context.Context, studentID, password string) (string, error) {
	if password != "s3cret" {
		return "", eschool.ErrLogin
	}
	n := u.logins.Add(1)
	return fmt.Sprintf("ASPSESSIONID=%d", n), nil
}

func (u *fakeUpstream) Fetch(ctx context.Context, session string, kind eschool.DocumentKind) (string, error) {
	u.fetches.Add(1)
	current := fmt.Sprintf("ASPSESSIONID=%d", u.logins.Load())
	if session != current || u.logins.Load() <= u.expired.Load() {
		return "", fmt.Errorf("%w: %s signature missing", eschool.ErrSessionExpired, kind)
	}
	switch kind {
	case eschool.DocumentProfile:
		return profileFixture, nil
	case eschool.DocumentScores:
		return scoresFixture, nil
	case eschool.DocumentConduct:
		if u.conductOverride != "" {
			return u.conductOverride, nil
		}
		return conductFixture, nil
	}
	return "", eschool.ErrFetch
}

// expireSessions invalidates every session handed out so far, the next
// login produces a working one again.
func (u *fakeUpstream) expireSessions() {
	u.expired.Store(u.logins.Load())
}

func setupService(t *testing.T, upstream *fakeUpstream) (sis.Service, store.Store) {
	cleanup := telemetry.SetupForTesting(t, "test:services/sis")
	t.Cleanup(cleanup)

	db, err := configsqlite.Struct{File: ":memory:"}.OpenDB(store.Schema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := store.New(db)

	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)
	v, err := vault.New(key)
	require.NoError(t, err)

	env, err := v.Wrap([]byte("s3cret"))
	require.NoError(t, err)
	err = st.PutCredential(context.Background(), sis.Credential{
		SubjectID: "113012",
		Envelope:  env,
	})
	require.NoError(t, err)

	sessions := sis.NewSessionCache(sis.SessionCacheOptions{
		Credentials: st,
		Vault:       v,
		Acquirer:    upstream,
	})
	service := sis.NewService(sis.ServiceOptions{
		Sessions: sessions,
		Fetcher:  upstream,
		Datasets: st,
	})
	return service, st
}

func TestFetchAndReconcile(t *testing.T) {
	upstream := &fakeUpstream{}
	service, st := setupService(t, upstream)
	ctx := context.Background()

	dataset, err := service.FetchAndReconcile(ctx, "113012")
	require.NoError(t, err)

	require.Equal(t, sis.StudentRecord{
		Name:       "王小明",
		ClassName:  "二年三班",
		SeatNumber: "12",
	}, dataset.Student)
	require.Len(t, dataset.Exams, 2)
	require.Equal(t, "113學年度第2學期", dataset.Exams[0].Semester)
	require.NotEmpty(t, dataset.Subjects)
	require.NotEmpty(t, dataset.Conduct)
	require.Equal(t, int64(1), upstream.logins.Load())

	persisted, err := st.ReadDataset(ctx, "113012")
	require.NoError(t, err)
	require.Equal(t, dataset.Student, persisted.Student)
	require.ElementsMatch(t, dataset.Exams, persisted.Exams)
	require.ElementsMatch(t, dataset.Subjects, persisted.Subjects)
	require.ElementsMatch(t, dataset.Conduct, persisted.Conduct)
}

func TestFetchAndReconcileIdempotent(t *testing.T) {
	upstream := &fakeUpstream{}
	service, st := setupService(t, upstream)
	ctx := context.Background()

	first, err := service.FetchAndReconcile(ctx, "113012")
	require.NoError(t, err)

	second, err := service.FetchAndReconcile(ctx, "113012")
	require.NoError(t, err)
	require.Equal(t, first, second)

	persisted, err := st.ReadDataset(ctx, "113012")
	require.NoError(t, err)
	require.True(t, sis.ComputeDiff(persisted, second).Empty())
}

func TestFetchAndReconcileRetriesExpiredSessionOnce(t *testing.T) {
	upstream := &fakeUpstream{}
	service, _ := setupService(t, upstream)
	ctx := context.Background()

	_, err := service.FetchAndReconcile(ctx, "113012")
	require.NoError(t, err)

	upstream.expireSessions()

	_, err = service.FetchAndReconcile(ctx, "113012")
	require.NoError(t, err)
	// the cached session died, exactly one re-login recovers it
	require.Equal(t, int64(2), upstream.logins.Load())
}

func TestFetchAndReconcileParseDrift(t *testing.T) {
	upstream := &fakeUpstream{
		conductOverride: "<html><body><h3>獎懲紀錄</h3><p>改版中</p></body></html>",
	}
	service, st := setupService(t, upstream)
	ctx := context.Background()

	_, err := service.FetchAndReconcile(ctx, "113012")
	require.True(t, errors.Is(err, eschool.ErrParse))

	// nothing may land when any document fails to parse
	persisted, err := st.ReadDataset(ctx, "113012")
	require.NoError(t, err)
	require.Empty(t, persisted.Exams)
	require.Empty(t, persisted.Conduct)
}

func TestGetLoginSession(t *testing.T) {
	upstream := &fakeUpstream{}
	service, _ := setupService(t, upstream)

	session, err := service.GetLoginSession(context.Background(), "113012")
	require.NoError(t, err)
	require.Contains(t, session, "ASPSESSIONID")
}

func TestConductDatesSurviveStorage(t *testing.T) {
	upstream := &fakeUpstream{}
	service, st := setupService(t, upstream)
	ctx := context.Background()

	dataset, err := service.FetchAndReconcile(ctx, "113012")
	require.NoError(t, err)

	persisted, err := st.ReadDataset(ctx, "113012")
	require.NoError(t, err)
	require.Equal(t, len(dataset.Conduct), len(persisted.Conduct))
	for _, r := range persisted.Conduct {
		require.Equal(t, time.UTC, r.ApprovalDate.Location())
		require.Equal(t, 0, r.ApprovalDate.Hour())
	}
}

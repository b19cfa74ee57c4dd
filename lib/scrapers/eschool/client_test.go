package eschool

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePortal struct {
	mux    *http.ServeMux
	server *httptest.Server

	password    string
	cookieless  bool
	expireAll   bool
	primeCount  atomic.Int64
	sessionName string
}

func newFakePortal(t *testing.T) *fakePortal {
	p := &fakePortal{
		password:    "s3cret",
		sessionName: "ASPSESSIONIDCSQATQRB",
	}

	p.mux = http.NewServeMux()
	p.mux.HandleFunc("/login.asp", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, confirmFlag, r.FormValue(fieldConfirm))

		if r.FormValue(fieldPassword) != p.password {
			w.WriteHeader(200)
			w.Write([]byte("<html><body>帳號或密碼錯誤</body></html>"))
			return
		}
		if !p.cookieless {
			http.SetCookie(w, &http.Cookie{Name: p.sessionName, Value: "ABCDEF", Path: "/"})
			http.SetCookie(w, &http.Cookie{Name: "lang", Value: "zh", Path: "/"})
		}
		// the real portal answers 302 on some deployments, 200 on
		// others, so the client must accept both
		w.Header().Set("Location", "/f_top.asp")
		w.WriteHeader(302)
		w.Write([]byte("<html><body>您的瀏覽器不支援框架</body></html>"))
	})
	p.mux.HandleFunc("/f_left.asp", func(w http.ResponseWriter, r *http.Request) {
		p.primeCount.Add(1)
		w.WriteHeader(200)
		w.Write([]byte("<html><body>menu</body></html>"))
	})
	p.mux.HandleFunc("/showfnc.asp", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		validSession := strings.Contains(r.Header.Get("Cookie"), p.sessionName) && !p.expireAll
		validReferer := strings.HasSuffix(r.Header.Get("Referer"), refererPage)
		if !validSession || !validReferer {
			// the portal serves an empty shell instead of an error
			w.Write([]byte("<html><body></body></html>"))
			return
		}

		switch r.FormValue(fieldFunction) {
		case DocumentProfile.functionCode():
			w.Write([]byte(profileFixture))
		case DocumentScores.functionCode():
			w.Write([]byte(scoresFixture))
		case DocumentConduct.functionCode():
			w.Write([]byte(conductFixture))
		default:
			w.Write([]byte("<html><body></body></html>"))
		}
	})

	p.server = httptest.NewServer(p.mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) client(t *testing.T) *Client {
	client, err := NewClient(ClientOptions{BaseUrl: p.server.URL})
	require.NoError(t, err)
	return client
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	t.Cleanup(cancel)
	return ctx
}

func TestLogin(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	session, err := client.Login(testContext(t), "113012", "s3cret")
	require.NoError(t, err)
	require.Contains(t, session, portal.sessionName+"=ABCDEF")
	require.Contains(t, session, "lang=zh")
	require.Equal(t, int64(1), portal.primeCount.Load())
}

func TestLoginBadCredentials(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	_, err := client.Login(testContext(t), "113012", "wrong")
	require.True(t, errors.Is(err, ErrLogin))
	require.False(t, errors.Is(err, ErrSession))
}

func TestLoginCookielessSuccess(t *testing.T) {
	portal := newFakePortal(t)
	portal.cookieless = true
	client := portal.client(t)

	_, err := client.Login(testContext(t), "113012", "s3cret")
	require.True(t, errors.Is(err, ErrSession))
	require.False(t, errors.Is(err, ErrLogin))
}

func TestFetch(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := testContext(t)

	session, err := client.Login(ctx, "113012", "s3cret")
	require.NoError(t, err)

	for _, kind := range []DocumentKind{DocumentProfile, DocumentScores, DocumentConduct} {
		html, err := client.Fetch(ctx, session, kind)
		require.NoError(t, err, kind.String())
		require.Contains(t, html, kind.signature())
	}
}

func TestFetchExpiredSession(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := testContext(t)

	session, err := client.Login(ctx, "113012", "s3cret")
	require.NoError(t, err)

	portal.expireAll = true
	_, err = client.Fetch(ctx, session, DocumentScores)
	require.True(t, errors.Is(err, ErrSessionExpired))
	require.True(t, errors.Is(err, ErrFetch))
}

func TestFetchWithoutSession(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	_, err := client.Fetch(testContext(t), "bogus=1", DocumentProfile)
	require.True(t, errors.Is(err, ErrSessionExpired))
}

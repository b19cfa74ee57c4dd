package eschool

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"

	"eduassist-backend/lib/telemetry"
)

type Client struct {
	baseUrl *url.URL
	http    *resty.Client
}

type ClientOptions struct {
	BaseUrl string
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)
	// redirects stay disabled so the raw login response (200 or 302,
	// the portal is inconsistent) and its Set-Cookie header can be
	// inspected directly
	client.GetClient().CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	telemetry.InstrumentResty(client, "scrapers/eschool/http")

	return &Client{
		baseUrl: baseUrl,
		http:    client,
	}, nil
}

// mergeCookies flattens every Set-Cookie value into a single Cookie
// header string, dropping attributes and keeping name=value pairs.
func mergeCookies(setCookies []string) string {
	var pairs []string
	for _, c := range setCookies {
		pair := strings.TrimSpace(strings.SplitN(c, ";", 2)[0])
		if pair == "" {
			continue
		}
		pairs = append(pairs, pair)
	}
	return strings.Join(pairs, "; ")
}

// Login performs the legacy handshake and returns the merged cookie
// string that authorizes subsequent requests. It fails with ErrLogin
// on rejected credentials and ErrSession on protocol anomalies.
func (c *Client) Login(ctx context.Context, studentID, password string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			fieldStudentID: studentID,
			fieldPassword:  password,
			fieldConfirm:   confirmFlag,
		}).
		Post(loginEndpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login request failed")
		return "", fmt.Errorf("%w: %s", ErrSession, err.Error())
	}
	if res.StatusCode() != 200 && res.StatusCode() != 302 {
		span.SetStatus(codes.Error, "unexpected login status")
		return "", fmt.Errorf("%w: unexpected status %d", ErrSession, res.StatusCode())
	}

	session := mergeCookies(res.Header().Values("Set-Cookie"))
	if !strings.Contains(session, sessionMarker) {
		// no session cookie. the portal renders the frame-unsupported
		// page on success, so its absence means the credentials were
		// rejected. this is a substring heuristic, not a documented
		// contract, hence the logging when the fragile path fires.
		if !strings.Contains(string(res.Body()), frameMarker) {
			span.SetStatus(codes.Error, "credentials rejected")
			return "", ErrLogin
		}
		slog.WarnContext(
			ctx, "login succeeded without a session cookie",
			"student_id", studentID,
		)
		span.SetStatus(codes.Error, "cookie-less login success")
		return "", fmt.Errorf("%w: success page without %s cookie", ErrSession, sessionMarker)
	}

	c.prime(ctx, session)

	return session, nil
}

// prime issues the secondary request the portal needs to fully
// activate a fresh session. Failure is logged but non-fatal, the
// session may still work.
func (c *Client) prime(ctx context.Context, session string) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Cookie", session).
		Get(primeEndpoint)
	if err != nil {
		slog.WarnContext(ctx, "session priming request failed", "err", err)
		return
	}
	if res.StatusCode() != 200 {
		slog.WarnContext(
			ctx, "session priming request returned unexpected status",
			"status", res.StatusCode(),
		)
	}
}

// Fetch retrieves the raw HTML of one document kind. A response body
// missing the kind's content signature reports ErrSessionExpired so
// the caller can invalidate its cached session and retry once.
func (c *Client) Fetch(ctx context.Context, session string, kind DocumentKind) (string, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch:"+kind.String())
	defer span.End()

	referer, err := c.baseUrl.Parse(refererPage)
	if err != nil {
		return "", err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Cookie", session).
		SetHeader("Referer", referer.String()).
		SetFormData(map[string]string{
			fieldFunction: kind.functionCode(),
			// fixed placeholders the endpoint requires to be present
			// and empty
			"std_id": "",
			"year":   "",
			"sem":    "",
		}).
		Post(fetchEndpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch request failed")
		return "", fmt.Errorf("%w: %s", ErrFetch, err.Error())
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, "unexpected fetch status")
		return "", fmt.Errorf("%w: unexpected status %d", ErrFetch, res.StatusCode())
	}

	body := res.String()
	if !strings.Contains(body, kind.signature()) {
		span.SetStatus(codes.Error, "content signature missing")
		return "", fmt.Errorf("%w: %s signature missing", ErrSessionExpired, kind)
	}

	return body, nil
}

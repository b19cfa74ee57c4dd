package eschool

import (
	"errors"
	"fmt"
)

var (
	// ErrLogin means the portal rejected the credentials. Terminal,
	// surface to the caller.
	ErrLogin = errors.New("eschool: login rejected")
	// ErrSession covers protocol anomalies during the login
	// handshake, ex. a success page arriving without a session
	// cookie.
	ErrSession = errors.New("eschool: session handshake anomaly")
	// ErrFetch covers transport failures and malformed responses on
	// document fetches.
	ErrFetch = errors.New("eschool: document fetch failed")
	// ErrSessionExpired is an ErrFetch flavor: the response body is
	// missing the document's content signature, which is how the
	// portal signals a dead session (it never returns an error code).
	// The pipeline may invalidate its cached session and retry once.
	ErrSessionExpired = fmt.Errorf("%w: session likely expired", ErrFetch)
	// ErrParse means the markup no longer matches the expected
	// structure. Never retried: it indicates upstream drift and must
	// reach operators instead of producing silently wrong data.
	ErrParse = errors.New("eschool: markup did not match expected structure")
)

package eschool

// The portal multiplexes every document behind one POST endpoint,
// selected by an opaque numeric function code. None of these values
// are documented upstream; they were captured off the wire and live
// here in one place for when the portal inevitably drifts.

type DocumentKind int

const (
	DocumentProfile DocumentKind = iota
	DocumentScores
	DocumentConduct
)

func (k DocumentKind) String() string {
	switch k {
	case DocumentProfile:
		return "profile"
	case DocumentScores:
		return "scores"
	case DocumentConduct:
		return "conduct"
	}
	return "unknown"
}

// functionCode is the fncid form value selecting this document.
func (k DocumentKind) functionCode() string {
	switch k {
	case DocumentProfile:
		return "010090"
	case DocumentScores:
		return "010210"
	case DocumentConduct:
		return "010040"
	}
	return ""
}

// signature is a substring that every well-formed response of this
// kind contains. A body without it almost always means the session
// died, because the portal serves an empty shell page instead of an
// error.
func (k DocumentKind) signature() string {
	switch k {
	case DocumentProfile:
		return "學生基本資料"
	case DocumentScores:
		return "成績一覽"
	case DocumentConduct:
		return "獎懲紀錄"
	}
	return ""
}

const (
	loginEndpoint = "/login.asp"
	fetchEndpoint = "/showfnc.asp"
	// the frameset menu page, requesting it "primes" a fresh session
	primeEndpoint = "/f_left.asp"
	// the portal silently serves an empty page unless the Referer
	// matches its own viewer frame
	refererPage = "/f_view.asp"

	fieldStudentID = "txtid"
	fieldPassword  = "txtpwd"
	fieldConfirm   = "check"
	confirmFlag    = "confirm"
	fieldFunction  = "fncid"

	// the legacy server is classic ASP, its session cookie always
	// carries this marker
	sessionMarker = "ASPSESSIONID"
	// served after a successful login to browsers without frame
	// support, used to tell cookie-less success apart from rejected
	// credentials
	frameMarker = "不支援框架"
)

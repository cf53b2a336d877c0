// Package guard decides, per navigation, whether the current session may see
// a page. It is a UX gate over unverified claims; see package claims.
package guard

import (
	"time"

	"portal/internal/claims"
	"portal/internal/metrics"
)

// Page paths the guard redirects to.
const (
	LoginPath    = "/login"
	UserLanding  = "/dashboard"
	AdminLanding = "/admin"
)

// Access is the level a page requires.
type Access int

const (
	// Member pages need any valid session.
	Member Access = iota
	// Elevated pages additionally need the admin role.
	Elevated
)

func (a Access) String() string {
	if a == Elevated {
		return "elevated"
	}
	return "member"
}

// Outcome names the step of the evaluation that decided.
type Outcome string

const (
	OutcomeAllow     Outcome = "allow"
	OutcomeNoToken   Outcome = "no_token"
	OutcomeMalformed Outcome = "malformed"
	OutcomeExpired   Outcome = "expired"
	OutcomeNotAdmin  Outcome = "not_admin"
)

// Decision is the result of one evaluation.
type Decision struct {
	Outcome Outcome
	// Claims is set whenever the session itself is valid.
	Claims *claims.Claims
	// Redirect is empty when the page may render.
	Redirect string
	// ClearSession asks the caller to drop the stored token.
	ClearSession bool
}

// Allowed reports whether the requested page may render.
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// Authenticated reports whether the session is present, decodable and unexpired.
func (d Decision) Authenticated() bool {
	return d.Claims != nil
}

type Guard struct {
	now     func() time.Time
	metrics *metrics.Metrics
}

// New creates a guard. m may be nil.
func New(m *metrics.Metrics) *Guard {
	return &Guard{now: time.Now, metrics: m}
}

// Check evaluates the stored token against a page requiring access:
// absent -> login; undecodable or expired -> clear and login;
// elevated page without admin role -> ordinary landing; otherwise allow.
func (g *Guard) Check(token string, present bool, access Access) Decision {
	d := g.session(token, present)
	if d.Authenticated() && access == Elevated && !d.Claims.IsAdmin() {
		d = Decision{Outcome: OutcomeNotAdmin, Claims: d.Claims, Redirect: UserLanding}
	}
	g.metrics.GuardDecision(string(d.Outcome))
	return d
}

// Landing resolves an unmatched route: admins go to the admin panel, other
// valid sessions to the dashboard, everybody else to login. Invalid tokens
// are cleared on the way.
func (g *Guard) Landing(token string, present bool) Decision {
	d := g.session(token, present)
	switch {
	case !d.Authenticated():
		// Redirect and ClearSession already point at login.
	case d.Claims.IsAdmin():
		d.Redirect = AdminLanding
	default:
		d.Redirect = UserLanding
	}
	g.metrics.GuardDecision(string(d.Outcome))
	return d
}

func (g *Guard) session(token string, present bool) Decision {
	if !present || token == "" {
		return Decision{Outcome: OutcomeNoToken, Redirect: LoginPath}
	}

	c, err := claims.Decode(token)
	if err != nil {
		return Decision{Outcome: OutcomeMalformed, Redirect: LoginPath, ClearSession: true}
	}

	if c.Expired(g.now()) {
		return Decision{Outcome: OutcomeExpired, Redirect: LoginPath, ClearSession: true}
	}

	return Decision{Outcome: OutcomeAllow, Claims: c}
}

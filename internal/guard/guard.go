// Package guard decides whether a navigation target may be rendered for the
// current session.
package guard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reelfolio/reelfolio/internal/session"
)

// Requirement is what a route demands of the session
type Requirement int

const (
	RequireNone Requirement = iota
	RequireAuthenticated
	RequireAdmin
)

func (r Requirement) String() string {
	switch r {
	case RequireNone:
		return "none"
	case RequireAuthenticated:
		return "authenticated"
	case RequireAdmin:
		return "authenticated+admin"
	}
	return fmt.Sprintf("requirement(%d)", int(r))
}

// Outcome is the kind of decision
type Outcome int

const (
	RenderLoading Outcome = iota
	RenderContent
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case RenderLoading:
		return "render-loading"
	case RenderContent:
		return "render-protected-content"
	case Redirect:
		return "redirect"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Redirect targets
const (
	SignInPath        = "/auth"
	NotAuthorizedPath = "/not-authorized"
)

// Decision is the guard's answer. Target is set only for Redirect.
type Decision struct {
	Outcome Outcome
	Target  string
}

func (d Decision) String() string {
	if d.Outcome == Redirect {
		return fmt.Sprintf("redirect(%s)", d.Target)
	}
	return d.Outcome.String()
}

// Decide gates a navigation. While the session is still loading it never
// redirects, so a returning user is not bounced to sign-in before their
// session has been restored.
func Decide(snap session.Snapshot, req Requirement) Decision {
	if snap.IsLoading {
		return Decision{Outcome: RenderLoading}
	}

	switch req {
	case RequireNone:
		return Decision{Outcome: RenderContent}
	case RequireAuthenticated:
		if snap.User == nil {
			return Decision{Outcome: Redirect, Target: SignInPath}
		}
		return Decision{Outcome: RenderContent}
	default:
		if snap.User == nil {
			return Decision{Outcome: Redirect, Target: SignInPath}
		}
		if !snap.IsAdmin {
			return Decision{Outcome: Redirect, Target: NotAuthorizedPath}
		}
		return Decision{Outcome: RenderContent}
	}
}

// Route maps a path prefix to its requirement
type Route struct {
	Prefix      string
	Requirement Requirement
}

// Routes is the portfolio's route table. Everything under /admin is admin-only.
var Routes = []Route{
	{Prefix: "/", Requirement: RequireNone},
	{Prefix: "/profile-selection", Requirement: RequireNone},
	{Prefix: "/portfolio", Requirement: RequireNone},
	{Prefix: "/project", Requirement: RequireNone},
	{Prefix: "/about", Requirement: RequireNone},
	{Prefix: SignInPath, Requirement: RequireNone},
	{Prefix: "/account", Requirement: RequireAuthenticated},
	{Prefix: "/admin", Requirement: RequireAdmin},
}

// RequirementFor resolves path against Routes by longest matching prefix.
// Prefixes match whole path segments, so /administrator is not /admin.
func RequirementFor(path string) Requirement {
	return resolve(Routes, path)
}

func resolve(routes []Route, path string) Requirement {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})

	for _, r := range sorted {
		if r.Prefix == "/" || path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") {
			return r.Requirement
		}
	}
	return RequireNone
}

// Navigate resolves the requirement for path and decides against snap
func Navigate(snap session.Snapshot, path string) Decision {
	return Decide(snap, RequirementFor(path))
}

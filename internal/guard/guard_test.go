package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reelfolio/reelfolio/internal/session"
)

var (
	viewer = &session.User{ID: "u1", Email: "viewer@example.com"}
	admin  = &session.User{ID: "u2", Email: "admin@example.com"}
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		snap session.Snapshot
		req  Requirement
		want Decision
	}{
		{
			name: "public route for anonymous visitor",
			snap: session.Snapshot{},
			req:  RequireNone,
			want: Decision{Outcome: RenderContent},
		},
		{
			name: "anonymous visitor on admin route",
			snap: session.Snapshot{},
			req:  RequireAdmin,
			want: Decision{Outcome: Redirect, Target: SignInPath},
		},
		{
			name: "non-admin on admin route",
			snap: session.Snapshot{User: viewer},
			req:  RequireAdmin,
			want: Decision{Outcome: Redirect, Target: NotAuthorizedPath},
		},
		{
			name: "admin on admin route",
			snap: session.Snapshot{User: admin, IsAdmin: true},
			req:  RequireAdmin,
			want: Decision{Outcome: RenderContent},
		},
		{
			name: "anonymous visitor on authenticated route",
			snap: session.Snapshot{},
			req:  RequireAuthenticated,
			want: Decision{Outcome: Redirect, Target: SignInPath},
		},
		{
			name: "signed-in user on authenticated route",
			snap: session.Snapshot{User: viewer},
			req:  RequireAuthenticated,
			want: Decision{Outcome: RenderContent},
		},
		{
			name: "loading wins over missing user",
			snap: session.Snapshot{IsLoading: true},
			req:  RequireAdmin,
			want: Decision{Outcome: RenderLoading},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.snap, tt.req))
		})
	}
}

func TestDecide_NeverRedirectsWhileLoading(t *testing.T) {
	snaps := []session.Snapshot{
		{IsLoading: true},
		{IsLoading: true, User: viewer},
		{IsLoading: true, User: admin, IsAdmin: true},
	}
	for _, snap := range snaps {
		for _, req := range []Requirement{RequireNone, RequireAuthenticated, RequireAdmin} {
			d := Decide(snap, req)
			assert.Equal(t, RenderLoading, d.Outcome, "requirement %s", req)
			assert.Empty(t, d.Target)
		}
	}
}

func TestRequirementFor(t *testing.T) {
	tests := map[string]Requirement{
		"/":                  RequireNone,
		"/portfolio":         RequireNone,
		"/project/01HX":      RequireNone,
		"/about":             RequireNone,
		"/auth":              RequireNone,
		"/account":           RequireAuthenticated,
		"/admin":             RequireAdmin,
		"/admin/projects":    RequireAdmin,
		"admin/banners":      RequireAdmin,
		"/administrator":     RequireNone,
		"/something-unknown": RequireNone,
	}
	for path, want := range tests {
		assert.Equal(t, want, RequirementFor(path), "path %q", path)
	}
}

func TestNavigate_Scenarios(t *testing.T) {
	assert.Equal(t, "redirect(/auth)", Navigate(session.Snapshot{}, "/admin").String())
	assert.Equal(t, "redirect(/not-authorized)", Navigate(session.Snapshot{User: viewer}, "/admin/projects").String())
	assert.Equal(t, "render-protected-content", Navigate(session.Snapshot{User: admin, IsAdmin: true}, "/admin").String())
	assert.Equal(t, "render-loading", Navigate(session.Snapshot{IsLoading: true}, "/admin").String())
}

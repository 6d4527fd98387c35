package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRoles(roles ...string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithActor(req.Context(), "u1", roles))
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireRole_Allowed(t *testing.T) {
	c := contextWithRoles(RoleTriage)
	if err := RequireRole(RoleTriage, RoleKiosk)(okHandler)(c); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	c := contextWithRoles(RoleViewer)
	err := RequireRole(RoleTriage, RoleKiosk)(okHandler)(c)
	expectStatus(t, err, http.StatusForbidden)
}

func TestRequireRole_NoRoles(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	err := RequireRole(RoleViewer)(okHandler)(c)
	expectStatus(t, err, http.StatusForbidden)
}

func TestRequireRole_AdminBypass(t *testing.T) {
	c := contextWithRoles(RoleAdmin)
	if err := RequireRole(RoleKiosk)(okHandler)(c); err != nil {
		t.Error("admin should bypass role checks")
	}
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		granted  []string
		required []string
		want     bool
	}{
		{[]string{RoleTriage}, []string{RoleTriage}, true},
		{[]string{RoleViewer, RoleKiosk}, []string{RoleKiosk}, true},
		{[]string{RoleViewer}, []string{RoleTriage, RoleKiosk}, false},
		{nil, []string{RoleViewer}, false},
		{[]string{RoleAdmin}, nil, true},
	}
	for _, tt := range tests {
		if got := HasRole(tt.granted, tt.required...); got != tt.want {
			t.Errorf("HasRole(%v, %v) = %v, want %v", tt.granted, tt.required, got, tt.want)
		}
	}
}

func TestUserIDFromContext(t *testing.T) {
	c := contextWithRoles(RoleTriage)
	if uid := UserIDFromContext(c.Request().Context()); uid != "u1" {
		t.Errorf("expected u1, got %q", uid)
	}
	e := echo.New()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if uid := UserIDFromContext(c.Request().Context()); uid != "" {
		t.Errorf("expected empty actor, got %q", uid)
	}
}

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/config"
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/core/services"
	"cmcs-claims/internal/pkg/logger"
	"cmcs-claims/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type stubResolver struct {
	tokens map[string]domain.Role
	err    error
}

func (r *stubResolver) Resolve(ctx context.Context, token string) (*models.User, *domain.Session, error) {
	if r.err != nil {
		return nil, nil, r.err
	}
	role, ok := r.tokens[token]
	if !ok {
		return nil, nil, services.ErrSessionInvalid
	}
	user := &models.User{FirstName: "Test", LastName: string(role), Role: role, IsActive: true}
	user.ID = 42
	return user, &domain.Session{ID: "sid-" + token, UserID: 42, Role: role, Name: user.FullName()}, nil
}

func newTestApp(resolver SessionResolver, roles ...domain.Role) *fiber.App {
	cfg := &config.Config{Cookie: config.CookieConfig{Name: "cmcs_session"}}
	app := fiber.New()
	app.Get("/protected",
		AuthMiddleware(resolver, cfg, logger.Discard()),
		RoleMiddleware(roles...),
		func(c *fiber.Ctx) error {
			return c.SendString(string(c.Locals("role").(domain.Role)))
		},
	)
	return app
}

func decode(t *testing.T, body io.Reader) response.Response {
	t.Helper()
	var r response.Response
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return r
}

func TestAuthAndRoleMiddleware(t *testing.T) {
	resolver := &stubResolver{tokens: map[string]domain.Role{
		"lecturer-token": domain.RoleLecturer,
		"hr-token":       domain.RoleHR,
	}}
	app := newTestApp(resolver, domain.RoleHR)

	tests := []struct {
		name       string
		cookie     string
		bearer     string
		wantStatus int
	}{
		{"no token", "", "", fiber.StatusUnauthorized},
		{"unknown token", "forged", "", fiber.StatusUnauthorized},
		{"wrong role via cookie", "lecturer-token", "", fiber.StatusForbidden},
		{"allowed role via cookie", "hr-token", "", fiber.StatusOK},
		{"allowed role via bearer", "", "hr-token", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.cookie != "" {
				req.Header.Set("Cookie", "cmcs_session="+tt.cookie)
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}

			resp, err := app.Test(req, int(time.Second.Milliseconds()))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			if tt.wantStatus == fiber.StatusUnauthorized {
				body := decode(t, resp.Body)
				data, _ := body.Data.(map[string]interface{})
				if data["login"] != LoginPath {
					t.Errorf("401 body should carry the login path, got %+v", body)
				}
			}
			if tt.wantStatus == fiber.StatusForbidden {
				if body := decode(t, resp.Body); body.Error != "Access denied" {
					t.Errorf("403 error = %q", body.Error)
				}
			}
		})
	}
}

func TestAuthMiddleware_ResolverFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"expired session", services.ErrSessionExpired, fiber.StatusUnauthorized, "Session expired, please log in again"},
		{"inactive user", services.ErrUserInactive, fiber.StatusUnauthorized, "User account is inactive"},
		{"store down", errors.New("redis: connection refused"), fiber.StatusInternalServerError, "Failed to verify session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&stubResolver{err: tt.err}, domain.Roles...)
			req := httptest.NewRequest("GET", "/protected", nil)
			req.Header.Set("Authorization", "Bearer anything")

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if body := decode(t, resp.Body); body.Error != tt.wantError {
				t.Errorf("error = %q, want %q", body.Error, tt.wantError)
			}
		})
	}
}

func TestRoleMiddleware_WithoutAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/", HROnly(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.Discard())})
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })
	app.Get("/plain", func(c *fiber.Ctx) error { return errors.New("secret detail") })

	resp, _ := app.Test(httptest.NewRequest("GET", "/fiber", nil))
	if resp.StatusCode != fiber.StatusTeapot {
		t.Errorf("status = %d, want 418", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/plain", nil))
	body := decode(t, resp.Body)
	if resp.StatusCode != fiber.StatusInternalServerError || body.Error != "Internal Server Error" {
		t.Errorf("unexpected error response %d %+v", resp.StatusCode, body)
	}
}

func TestNoCacheHeaders(t *testing.T) {
	app := fiber.New()
	app.Use(NoCacheHeaders())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, _ := app.Test(httptest.NewRequest("GET", "/", nil))
	if got := resp.Header.Get("Cache-Control"); got != "no-store, no-cache, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestPrivateCacheHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/", PrivateCacheHeaders(2*time.Minute), func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, _ := app.Test(httptest.NewRequest("GET", "/", nil))
	if got := resp.Header.Get("Cache-Control"); got != "private, max-age=120" {
		t.Errorf("Cache-Control = %q", got)
	}
}

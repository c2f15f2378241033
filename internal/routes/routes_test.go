package routes

import (
	"net/http"
	"testing"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/apps"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/apps/apptest"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/apps/streak"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/database"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/services"
	"github.com/gofiber/fiber/v2"
)

type echoPlugin struct{}

func (echoPlugin) ID() string { return "echo" }

func (echoPlugin) RegisterPublicRoutes(router fiber.Router, _ *config.Config) {
	router.Post("/practice/questions", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"questions": []string{}})
	})
}

func newServer(t *testing.T) *fiber.App {
	t.Helper()
	cfg := apptest.Config()
	cfg.AdminEmails = "boss@example.com"
	db := apptest.DB(t)
	if err := database.MigrateShared(db); err != nil {
		t.Fatal(err)
	}
	plugins := []apps.Plugin{streak.New()}
	for _, p := range plugins {
		if err := database.MigrateModels(db, p.Models()); err != nil {
			t.Fatal(err)
		}
	}

	app := fiber.New()
	Setup(app, cfg, db,
		handlers.NewAuthHandler(services.NewAuthService(db, cfg)),
		handlers.NewHealthHandler(db, []string{"streak", "echo"}),
		handlers.NewSystemLogHandler(services.NewSystemLogService(db, cfg.LogRetention)),
		plugins,
		[]apps.PublicPlugin{echoPlugin{}},
	)
	return app
}

func register(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	status, body := apptest.Do(t, app, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{Email: email, Password: "password123"})
	if status != http.StatusCreated && status != http.StatusOK {
		t.Fatalf("register %s = %d: %s", email, status, body)
	}
	var resp dto.AuthResponse
	apptest.Decode(t, body, &resp)
	return resp.AccessToken
}

func TestPublicRoutesStayOpen(t *testing.T) {
	app := newServer(t)

	if status, body := apptest.Do(t, app, http.MethodPost, "/api/practice/questions", "", map[string]string{"nodeId": "x"}); status != http.StatusOK {
		t.Errorf("public route = %d: %s", status, body)
	}
	if status, _ := apptest.Do(t, app, http.MethodGet, "/api/health", "", nil); status != http.StatusOK {
		t.Errorf("health = %d", status)
	}
}

func TestProtectedRoutes(t *testing.T) {
	app := newServer(t)

	if status, _ := apptest.Do(t, app, http.MethodGet, "/api/p/streak", "", nil); status != http.StatusUnauthorized {
		t.Errorf("anonymous streak = %d", status)
	}

	token := register(t, app, "Learner@Example.com")
	status, body := apptest.Do(t, app, http.MethodGet, "/api/p/streak", token, nil)
	if status != http.StatusOK {
		t.Fatalf("streak = %d: %s", status, body)
	}
	var st streak.StreakResponse
	apptest.Decode(t, body, &st)
	if st.Streak != 1 || st.LastActive != nil {
		t.Errorf("fresh streak = %+v", st)
	}
}

func TestAdminLogs(t *testing.T) {
	app := newServer(t)

	learner := register(t, app, "learner@example.com")
	if status, _ := apptest.Do(t, app, http.MethodGet, "/api/admin/logs", learner, nil); status != http.StatusForbidden {
		t.Errorf("non-admin = %d", status)
	}

	boss := register(t, app, "boss@example.com")
	if status, body := apptest.Do(t, app, http.MethodGet, "/api/admin/logs", boss, nil); status != http.StatusOK {
		t.Errorf("admin = %d: %s", status, body)
	}
}

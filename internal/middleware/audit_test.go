package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestAuditLogsCallerAccount(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	app.Use(Audit(logger))
	app.Post("/transfers", func(c *fiber.Ctx) error {
		c.Locals("account_id", "9f2c1a34-0000-4000-8000-000000000001")
		return c.SendStatus(fiber.StatusCreated)
	})

	req := httptest.NewRequest(fiber.MethodPost, "/transfers", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode audit line: %v (%s)", err, buf.String())
	}
	if entry["method"] != "POST" || entry["path"] != "/transfers" {
		t.Fatalf("unexpected request fields: %v", entry)
	}
	if entry["status"] != float64(fiber.StatusCreated) {
		t.Fatalf("expected status %d, got %v", fiber.StatusCreated, entry["status"])
	}
	if entry["account_id"] != "9f2c1a34-0000-4000-8000-000000000001" {
		t.Fatalf("caller account missing from audit line: %v", entry)
	}
}

func TestAuditOmitsAccountForAnonymousRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	app.Use(Audit(logger))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/healthz", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode audit line: %v (%s)", err, buf.String())
	}
	if _, ok := entry["account_id"]; ok {
		t.Fatalf("anonymous request must not carry an account: %v", entry)
	}
}

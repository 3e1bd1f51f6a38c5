package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jetonpay/jeton/internal/config"
	"github.com/jetonpay/jeton/internal/logging"
	"github.com/jetonpay/jeton/internal/token"
)

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	cfg := config.Config{
		AppName:         "jeton-test",
		AppEnv:          "development",
		JWTSecret:       "test-access-secret",
		RefreshSecret:   "test-refresh-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		TokenSupply:     token.NewAmount(1_000),
	}
	if err := Setup(app, Deps{Cfg: cfg, Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup routes: %v", err)
	}
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, bearer string, body any) (int, map[string]any) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func registerAndLogin(t *testing.T, app *fiber.App, phone string) (accountID, accessToken string) {
	t.Helper()
	status, body := doJSON(t, app, fiber.MethodPost, "/api/v1/identity/register", "", fiber.Map{
		"phone": phone, "password": "long enough password",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("register %s: status %d body %v", phone, status, body)
	}
	accountID, _ = body["account_id"].(string)

	status, body = doJSON(t, app, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"phone": phone, "password": "long enough password",
	})
	if status != fiber.StatusOK {
		t.Fatalf("login %s: status %d body %v", phone, status, body)
	}
	accessToken, _ = body["access_token"].(string)
	if accountID == "" || accessToken == "" {
		t.Fatalf("missing account or token for %s: %v", phone, body)
	}
	return accountID, accessToken
}

func TestRegisterLoginAndQueries(t *testing.T) {
	app := setupApp(t)
	accountID, tok := registerAndLogin(t, app, "+242061110001")

	status, body := doJSON(t, app, fiber.MethodGet, "/api/v1/token/supply", tok, nil)
	if status != fiber.StatusOK || body["total_supply"] != "1000" {
		t.Fatalf("supply: status %d body %v", status, body)
	}

	// Fresh accounts hold nothing: the full supply sits with the treasury.
	status, body = doJSON(t, app, fiber.MethodGet, "/api/v1/token/accounts/me/balance", tok, nil)
	if status != fiber.StatusOK || body["balance"] != "0" {
		t.Fatalf("balance: status %d body %v", status, body)
	}
	if body["account_id"] != accountID {
		t.Fatalf("expected own account %s, got %v", accountID, body["account_id"])
	}

	status, _ = doJSON(t, app, fiber.MethodGet, "/api/v1/token/supply", "", nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
}

func TestApproveAndAllowanceFlow(t *testing.T) {
	app := setupApp(t)
	ownerAccount, ownerTok := registerAndLogin(t, app, "+242061110002")
	spenderAccount, spenderTok := registerAndLogin(t, app, "+242061110003")

	status, body := doJSON(t, app, fiber.MethodPost, "/api/v1/token/approvals", ownerTok, fiber.Map{
		"spender_account_id": spenderAccount,
		"amount":             "250",
	})
	if status != fiber.StatusCreated || body["allowance"] != "250" {
		t.Fatalf("approve: status %d body %v", status, body)
	}

	path := fmt.Sprintf("/api/v1/token/accounts/%s/allowances/%s", ownerAccount, spenderAccount)
	status, body = doJSON(t, app, fiber.MethodGet, path, ownerTok, nil)
	if status != fiber.StatusOK || body["allowance"] != "250" {
		t.Fatalf("allowance query: status %d body %v", status, body)
	}

	// The owner holds no tokens, so spending the allowance trips the balance
	// check, not the allowance check.
	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/token/delegated-transfers", spenderTok, fiber.Map{
		"from_account_id": ownerAccount,
		"to_account_id":   spenderAccount,
		"amount":          "100",
	})
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unfunded owner, got %d", status)
	}

	// Exceeding the allowance is rejected up front.
	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/token/delegated-transfers", spenderTok, fiber.Map{
		"from_account_id": ownerAccount,
		"to_account_id":   spenderAccount,
		"amount":          "300",
	})
	if status != fiber.StatusForbidden {
		t.Fatalf("expected 403 beyond allowance, got %d", status)
	}
}

func TestTransferWithoutFundsIsRejected(t *testing.T) {
	app := setupApp(t)
	_, senderTok := registerAndLogin(t, app, "+242061110004")
	recipientAccount, _ := registerAndLogin(t, app, "+242061110005")

	status, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/token/transfers", senderTok, fiber.Map{
		"to_account_id": recipientAccount,
		"amount":        "10",
	})
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422 insufficient balance, got %d", status)
	}

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/token/transfers", senderTok, fiber.Map{
		"to_account_id": "not-an-account",
		"amount":        "10",
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for malformed account, got %d", status)
	}
}

func TestHealthReportsConservation(t *testing.T) {
	app := setupApp(t)

	req := httptest.NewRequest(fiber.MethodGet, "/healthz", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected healthy service, got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	statuses, _ := body["status"].(map[string]any)
	if statuses["ledger"] != "ok" {
		t.Fatalf("expected ledger conservation ok, got %v", statuses)
	}
}

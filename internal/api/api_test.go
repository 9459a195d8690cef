package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/erazemk/zaloga/internal/alert"
	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/checkout"
	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/kiosk"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	db     *sql.DB
	token  string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	router := NewRouter(Options{
		DB:        database,
		JWTSecret: testJWTSecret,
		TokenTTL:  time.Hour,
		Coordinator: &checkout.Coordinator{
			DB:      database,
			Alerts:  &alert.Trigger{DB: database, Notifier: alert.Multi{alert.LogNotifier{}, m}},
			Metrics: m,
		},
		Kiosk:          kiosk.NewManager(time.Minute),
		TrackingIDs:    &store.TrackingIDs{Prefix: "TC"},
		MetricsHandler: metrics.Handler(reg),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	hash, err := auth.HashSecret("password123")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	if _, err := store.CreateUser(context.Background(), database, "admin", hash, model.RoleAdmin); err != nil {
		t.Fatalf("creating admin: %v", err)
	}

	env := &testEnv{server: server, db: database}

	var login tokenResponse
	resp := env.do(t, "POST", "/api/auth/login", "", map[string]string{"username": "admin", "password": "password123"})
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &login)
	if login.Token == "" {
		t.Fatal("empty token from login")
	}
	env.token = login.Token
	return env
}

// do sends a JSON request. token is sent as a bearer token when set.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) *http.Response {
	t.Helper()
	var data []byte
	if body != nil {
		data, _ = json.Marshal(body)
	}

	req, err := http.NewRequest(method, e.server.URL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		var body errorBody
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		t.Fatalf("%s %s: expected %d, got %d (%s)", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body.Error)
	}
}

func expectError(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	defer resp.Body.Close()
	var body errorBody
	json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != status || body.Code != code {
		t.Fatalf("%s %s: expected %d %q, got %d %q (%s)", resp.Request.Method, resp.Request.URL.Path,
			status, code, resp.StatusCode, body.Code, body.Error)
	}
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

type itemResult struct {
	Subject     model.Item        `json:"subject"`
	Transaction model.Transaction `json:"transaction"`
	Alerted     bool              `json:"alerted"`
}

type assetResult struct {
	Subject     model.Asset       `json:"subject"`
	Transaction model.Transaction `json:"transaction"`
}

func (e *testEnv) createReason(t *testing.T, name string) model.CheckoutReason {
	t.Helper()
	var reason model.CheckoutReason
	resp := e.do(t, "POST", "/api/reasons", e.token, map[string]string{"name": name})
	expectStatus(t, resp, http.StatusCreated)
	decodeBody(t, resp, &reason)
	return reason
}

func (e *testEnv) createItem(t *testing.T, body map[string]any) model.Item {
	t.Helper()
	var item model.Item
	resp := e.do(t, "POST", "/api/items", e.token, body)
	expectStatus(t, resp, http.StatusCreated)
	decodeBody(t, resp, &item)
	return item
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, "POST", "/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = env.do(t, "POST", "/api/auth/login", "", map[string]string{"username": "admin"})
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestServer(t)

	for _, path := range []string{"/api/items", "/api/assets", "/api/transactions"} {
		resp := env.do(t, "GET", path, "", nil)
		expectStatus(t, resp, http.StatusUnauthorized)
		resp.Body.Close()
	}

	resp := env.do(t, "GET", "/api/items", "not-a-token", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	env := setupTestServer(t)

	user, err := store.CreateUser(context.Background(), env.db, "user1", "x", model.RoleUser)
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	userToken, _, err := auth.GenerateToken(testJWTSecret, time.Hour, user, auth.ScopeOperator)
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}

	// Regular user should not be able to create items (manager+ required).
	resp := env.do(t, "POST", "/api/items", userToken, map[string]string{"name": "Test"})
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	// Regular user should not access /api/users.
	resp = env.do(t, "GET", "/api/users", userToken, nil)
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	// Reading the catalog is allowed.
	resp = env.do(t, "GET", "/api/items", userToken, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestMobileTokenRejectedByOperatorGateway(t *testing.T) {
	env := setupTestServer(t)

	admin, err := store.GetUserByUsername(context.Background(), env.db, "admin")
	if err != nil || admin == nil {
		t.Fatalf("loading admin: %v", err)
	}
	mobileToken, _, err := auth.GenerateToken(testJWTSecret, time.Hour, admin, auth.ScopeMobile)
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}

	resp := env.do(t, "GET", "/api/items", mobileToken, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	// And the other way round.
	resp = env.do(t, "GET", "/api/mobile/auth/verify", env.token, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, "POST", "/api/auth/logout", env.token, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.do(t, "GET", "/api/items", env.token, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestValidationErrorsListFields(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, "POST", "/api/items", env.token, map[string]any{"quantity": -1})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var body errorBody
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Code != "invalid_input" {
		t.Errorf("expected code invalid_input, got %q", body.Code)
	}
	if body.Fields["name"] != "required" || body.Fields["quantity"] != "min" {
		t.Errorf("unexpected fields: %v", body.Fields)
	}
}

func TestItemCheckoutFlow(t *testing.T) {
	env := setupTestServer(t)
	reason := env.createReason(t, "Project")

	item := env.createItem(t, map[string]any{"name": "Resistor", "quantity": 2, "reorder_threshold": 1})
	if item.Quantity != 2 || item.Status != model.ItemStatusAvailable {
		t.Fatalf("unexpected new item: %+v", item)
	}

	// Check out everything by scanned tracking id.
	var res itemResult
	resp := env.do(t, "POST", "/api/checkout", env.token, map[string]any{
		"tracking_id": item.TrackingID,
		"quantity":    2,
		"reason_id":   reason.ID,
	})
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &res)
	if res.Subject.Quantity != 0 || res.Subject.Status != model.ItemStatusOutOfStock {
		t.Errorf("expected empty out_of_stock item, got %+v", res.Subject)
	}
	if res.Transaction.Delta != -2 || res.Transaction.Reason != "Project" {
		t.Errorf("unexpected transaction: %+v", res.Transaction)
	}
	if !res.Alerted {
		t.Error("expected a low-stock alert")
	}

	resp = env.do(t, "POST", "/api/checkout", env.token, map[string]any{
		"kind": "item", "id": item.ID, "reason_id": reason.ID,
	})
	expectError(t, resp, http.StatusConflict, "insufficient_stock")

	resp = env.do(t, "POST", "/api/checkout", env.token, map[string]any{
		"kind": "item", "id": item.ID, "reason_id": 999,
	})
	expectError(t, resp, http.StatusUnprocessableEntity, "invalid_reason")

	resp = env.do(t, "POST", "/api/checkout", env.token, map[string]any{
		"tracking_id": "TC-MISSING1", "reason_id": reason.ID,
	})
	expectError(t, resp, http.StatusNotFound, "not_found")

	// Low stock listing.
	var low []model.Item
	resp = env.do(t, "GET", "/api/items/low-stock", env.token, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &low)
	if len(low) != 1 || low[0].ID != item.ID {
		t.Errorf("expected the item in low stock, got %+v", low)
	}

	// Check in one unit and read the history, newest first.
	resp = env.do(t, "POST", "/api/checkin", env.token, map[string]any{"kind": "item", "id": item.ID})
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	var history []model.Transaction
	resp = env.do(t, "GET", "/api/items/"+itoa(item.ID)+"/history", env.token, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &history)
	if len(history) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(history))
	}
	if history[0].Kind != model.TxCheckin || history[2].Kind != model.TxAdjustment {
		t.Errorf("unexpected history order: %s, %s", history[0].Kind, history[2].Kind)
	}

	// Items with history cannot be deleted.
	resp = env.do(t, "DELETE", "/api/items/"+itoa(item.ID), env.token, nil)
	expectError(t, resp, http.StatusConflict, "has_history")
}

func TestAssetFlow(t *testing.T) {
	env := setupTestServer(t)
	reason := env.createReason(t, "Loan")

	var asset model.Asset
	resp := env.do(t, "POST", "/api/assets", env.token, map[string]string{"name": "Laptop"})
	expectStatus(t, resp, http.StatusCreated)
	decodeBody(t, resp, &asset)

	checkoutBody := map[string]any{"kind": "asset", "id": asset.ID, "reason_id": reason.ID}

	var res assetResult
	resp = env.do(t, "POST", "/api/checkout", env.token, checkoutBody)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &res)
	if res.Subject.Status != model.AssetStatusCheckedOut || res.Subject.HolderName != "admin" {
		t.Errorf("unexpected asset after checkout: %+v", res.Subject)
	}

	resp = env.do(t, "POST", "/api/checkout", env.token, checkoutBody)
	expectError(t, resp, http.StatusConflict, "asset_unavailable")

	resp = env.do(t, "PUT", "/api/assets/"+itoa(asset.ID)+"/status", env.token, map[string]string{"status": "maintenance"})
	expectError(t, resp, http.StatusConflict, "asset_unavailable")

	resp = env.do(t, "POST", "/api/checkin", env.token, map[string]any{
		"tracking_id": asset.TrackingID, "disposition": "maintenance",
	})
	expectStatus(t, resp, http.StatusOK)
	res = assetResult{}
	decodeBody(t, resp, &res)
	if res.Subject.Status != model.AssetStatusMaintenance || res.Subject.HolderID != nil {
		t.Errorf("unexpected asset after checkin: %+v", res.Subject)
	}

	resp = env.do(t, "POST", "/api/checkin", env.token, map[string]any{"kind": "asset", "id": asset.ID})
	expectError(t, resp, http.StatusConflict, "asset_not_checked_out")

	resp = env.do(t, "POST", "/api/assets/"+itoa(asset.ID)+"/remove", env.token, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &res)
	if res.Subject.Status != model.AssetStatusRemoved {
		t.Errorf("expected removed asset, got %s", res.Subject.Status)
	}

	resp = env.do(t, "POST", "/api/checkout", env.token, checkoutBody)
	expectError(t, resp, http.StatusConflict, "asset_unavailable")
}

func TestCategoryCycleRejected(t *testing.T) {
	env := setupTestServer(t)

	var parent, child model.Category
	resp := env.do(t, "POST", "/api/categories", env.token, map[string]any{"name": "Electronics"})
	expectStatus(t, resp, http.StatusCreated)
	decodeBody(t, resp, &parent)

	resp = env.do(t, "POST", "/api/categories", env.token, map[string]any{"name": "Passives", "parent_id": parent.ID})
	expectStatus(t, resp, http.StatusCreated)
	decodeBody(t, resp, &child)

	resp = env.do(t, "PUT", "/api/categories/"+itoa(parent.ID), env.token, map[string]any{"name": "Electronics", "parent_id": child.ID})
	expectError(t, resp, http.StatusConflict, "cyclic_category")

	resp = env.do(t, "DELETE", "/api/categories/"+itoa(parent.ID), env.token, nil)
	expectError(t, resp, http.StatusConflict, "has_children")

	item := env.createItem(t, map[string]any{"name": "Capacitor", "category_id": child.ID})
	var got model.Item
	resp = env.do(t, "GET", "/api/items/"+itoa(item.ID), env.token, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &got)
	if got.CategoryPath != "Electronics > Passives" {
		t.Errorf("expected full category path, got %q", got.CategoryPath)
	}
}

func TestKioskFlow(t *testing.T) {
	env := setupTestServer(t)
	reason := env.createReason(t, "Repair")
	item := env.createItem(t, map[string]any{"name": "Screw", "quantity": 10})

	resp := env.do(t, "PUT", "/api/auth/pin", env.token, map[string]string{"pin": "123456"})
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.do(t, "POST", "/api/kiosk/login", "", map[string]string{"username": "admin", "pin": "000000"})
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	var session kiosk.Session
	resp = env.do(t, "POST", "/api/kiosk/login", "", map[string]string{"username": "admin", "pin": "123456"})
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &session)
	if session.ID == "" {
		t.Fatal("empty kiosk session id")
	}

	var reasons []model.CheckoutReason
	resp = env.do(t, "GET", "/api/kiosk/reasons", "", nil, KioskSessionHeader, session.ID)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &reasons)
	if len(reasons) != 1 {
		t.Errorf("expected 1 active reason, got %d", len(reasons))
	}

	var res itemResult
	resp = env.do(t, "POST", "/api/kiosk/checkout", "", map[string]any{
		"tracking_id": item.TrackingID, "quantity": 3, "reason_id": reason.ID,
	}, KioskSessionHeader, session.ID)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &res)
	if res.Subject.Quantity != 7 || res.Transaction.UserID != session.UserID {
		t.Errorf("unexpected kiosk checkout result: %+v", res)
	}

	// Changing the PIN ends open kiosk sessions.
	resp = env.do(t, "PUT", "/api/auth/pin", env.token, map[string]string{"pin": "654321"})
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.do(t, "POST", "/api/kiosk/checkout", "", map[string]any{
		"tracking_id": item.TrackingID, "reason_id": reason.ID,
	}, KioskSessionHeader, session.ID)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = env.do(t, "POST", "/api/kiosk/login", "", map[string]string{"username": "admin", "pin": "654321"})
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &session)

	resp = env.do(t, "POST", "/api/kiosk/logout", "", nil, KioskSessionHeader, session.ID)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.do(t, "GET", "/api/kiosk/me", "", nil, KioskSessionHeader, session.ID)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestMobileFlow(t *testing.T) {
	env := setupTestServer(t)
	reason := env.createReason(t, "Field work")
	item := env.createItem(t, map[string]any{"name": "Cable tie", "quantity": 5})

	resp := env.do(t, "PUT", "/api/auth/pin", env.token, map[string]string{"pin": "246810"})
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	var login mobileTokenResponse
	resp = env.do(t, "POST", "/api/mobile/auth/login", "", map[string]string{"username": "admin", "pin": "246810"})
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &login)
	if login.Token == "" || login.User.Username != "admin" {
		t.Fatalf("unexpected mobile login: %+v", login)
	}

	resp = env.do(t, "GET", "/api/mobile/auth/verify", login.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	var lookup struct {
		Kind string `json:"kind"`
	}
	resp = env.do(t, "GET", "/api/mobile/lookup/"+item.TrackingID, login.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &lookup)
	if lookup.Kind != model.SubjectItem {
		t.Errorf("expected item lookup, got %q", lookup.Kind)
	}

	resp = env.do(t, "POST", "/api/mobile/checkout", login.Token, map[string]any{
		"tracking_id": item.TrackingID, "reason_id": reason.ID,
	})
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	var history []model.Transaction
	resp = env.do(t, "GET", "/api/mobile/checkout/history", login.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &history)
	if len(history) != 1 || history[0].Kind != model.TxCheckout {
		t.Errorf("expected only the recent checkout by default, got %+v", history)
	}

	resp = env.do(t, "GET", "/api/mobile/checkout/history?kind=all", login.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &history)
	if len(history) != 2 || history[0].Kind != model.TxCheckout || history[1].Kind != model.TxAdjustment {
		t.Errorf("expected checkout then initial stock, got %+v", history)
	}

	resp = env.do(t, "GET", "/api/mobile/checkout/history?since=2999-01-01T00:00:00Z", login.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &history)
	if len(history) != 0 {
		t.Errorf("expected no history after a future cutoff, got %d", len(history))
	}

	resp = env.do(t, "GET", "/api/mobile/checkout/history?since=yesterday", login.Token, nil)
	expectError(t, resp, http.StatusBadRequest, "invalid_input")

	env.createItem(t, map[string]any{"name": "Cable gland", "quantity": 1})
	env.createItem(t, map[string]any{"name": "Solder", "quantity": 1})

	var page struct {
		Results     []model.Item `json:"results"`
		Total       int          `json:"total"`
		Pages       int          `json:"pages"`
		CurrentPage int          `json:"current_page"`
		HasNext     bool         `json:"has_next"`
		HasPrev     bool         `json:"has_prev"`
	}
	resp = env.do(t, "GET", "/api/mobile/items/search?q=cable&limit=1", login.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &page)
	if page.Total != 2 || page.Pages != 2 || len(page.Results) != 1 || !page.HasNext || page.HasPrev {
		t.Errorf("unexpected first search page: %+v", page)
	}

	resp = env.do(t, "GET", "/api/mobile/items/search?q=cable&limit=1&page=2", login.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &page)
	if page.CurrentPage != 2 || len(page.Results) != 1 || page.HasNext || !page.HasPrev {
		t.Errorf("unexpected second search page: %+v", page)
	}

	resp = env.do(t, "GET", "/api/mobile/items/search?q="+item.TrackingID, login.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &page)
	if page.Total != 1 || page.Results[0].ID != item.ID {
		t.Errorf("expected tracking id match, got %+v", page)
	}

	resp = env.do(t, "GET", "/api/mobile/items/search", login.Token, nil)
	expectError(t, resp, http.StatusBadRequest, "invalid_input")

	resp = env.do(t, "POST", "/api/assets", env.token, map[string]string{"name": "Field laptop"})
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	var assetPage struct {
		Results []model.Asset `json:"results"`
		Total   int           `json:"total"`
	}
	resp = env.do(t, "GET", "/api/mobile/assets/search?q=laptop&limit=500", login.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &assetPage)
	if assetPage.Total != 1 || len(assetPage.Results) != 1 || assetPage.Results[0].Name != "Field laptop" {
		t.Errorf("unexpected asset search: %+v", assetPage)
	}

	resp = env.do(t, "GET", "/api/items?q=cable", login.Token, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	var refreshed mobileTokenResponse
	resp = env.do(t, "POST", "/api/mobile/auth/refresh", login.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &refreshed)
	if refreshed.Token == "" {
		t.Error("expected a refreshed token")
	}
}

func TestDeletedUserCannotCheckOut(t *testing.T) {
	env := setupTestServer(t)
	reason := env.createReason(t, "Project")
	item := env.createItem(t, map[string]any{"name": "Washer", "quantity": 5})

	var user model.User
	resp := env.do(t, "POST", "/api/users", env.token, map[string]string{
		"username": "worker", "password": "password123", "role": "user", "pin": "111111",
	})
	expectStatus(t, resp, http.StatusCreated)
	decodeBody(t, resp, &user)

	var login mobileTokenResponse
	resp = env.do(t, "POST", "/api/mobile/auth/login", "", map[string]string{"username": "worker", "pin": "111111"})
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &login)

	resp = env.do(t, "DELETE", "/api/users/"+itoa(user.ID), env.token, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// The token is still unexpired, but the actor no longer exists.
	resp = env.do(t, "POST", "/api/mobile/checkout", login.Token, map[string]any{
		"kind": "item", "id": item.ID, "reason_id": reason.ID,
	})
	expectError(t, resp, http.StatusNotFound, "not_found")
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t)
	reason := env.createReason(t, "Project")
	item := env.createItem(t, map[string]any{"name": "Fuse", "quantity": 1})

	resp := env.do(t, "POST", "/api/checkout", env.token, map[string]any{"kind": "item", "id": item.ID, "reason_id": reason.ID})
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	resp = env.do(t, "POST", "/api/checkout", env.token, map[string]any{"kind": "item", "id": item.ID, "reason_id": reason.ID})
	expectError(t, resp, http.StatusConflict, "insufficient_stock")

	resp = env.do(t, "GET", "/metrics", "", nil)
	expectStatus(t, resp, http.StatusOK)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`zaloga_ledger_mutations_total{kind="checkout",subject="item"} 1`,
		`zaloga_ledger_rejections_total{code="insufficient_stock"} 1`,
		`zaloga_items_needing_restock 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/config"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/database"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/handlers"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/inventory"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/testutil"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/websocket"
	"gorm.io/gorm"
)

func newTestAPI(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	db := testutil.OpenTestDB(t)

	cfg := &config.Config{
		NodeEnv:      "test",
		Port:         "0",
		JWTSecret:    "test-secret-key-12345",
		KioskBaseURL: "http://localhost:3002",
	}
	hub := websocket.NewHub()
	go hub.Run()

	router := handlers.NewRouter(&database.DB{DB: db}, cfg, hub)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, db
}

func postJSON(t *testing.T, url, token string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return body
}

func TestHealthCheck(t *testing.T) {
	server, _ := newTestAPI(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestRegisterAndLogin(t *testing.T) {
	server, _ := newTestAPI(t)

	resp := postJSON(t, server.URL+"/auth/register", "", map[string]string{
		"email":     "nurse@test.local",
		"password":  "secret12345",
		"full_name": "Nurse Test",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	// Duplicate email conflicts
	resp = postJSON(t, server.URL+"/auth/register", "", map[string]string{
		"email":    "nurse@test.local",
		"password": "secret12345",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/auth/login", "", map[string]string{
		"email":    "nurse@test.local",
		"password": "secret12345",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Error("missing access token")
	}

	resp = postJSON(t, server.URL+"/auth/login", "", map[string]string{
		"email":    "nurse@test.local",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func loginToken(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, server.URL+"/auth/register", "", map[string]string{
		"email":    "staff@test.local",
		"password": "secret12345",
	})
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/auth/login", "", map[string]string{
		"email":    "staff@test.local",
		"password": "secret12345",
	})
	body := decodeBody(t, resp)
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatal("no access token")
	}
	return token
}

func TestStaffRoutesRequireJWT(t *testing.T) {
	server, _ := newTestAPI(t)

	resp, err := http.Get(server.URL + "/api/orders")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", resp.StatusCode)
	}
}

func TestKioskOrderFlow(t *testing.T) {
	server, db := newTestAPI(t)
	token := loginToken(t, server)

	testutil.CreateKiosk(t, db, "ipad-flow")
	product := testutil.CreateProduct(t, db, "Agua natural", "DRINK")
	ledger := inventory.NewLedger(db)
	if _, _, err := ledger.Receive(product.ID, 10, nil, ""); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	// The kiosk sees its assignment
	resp, err := http.Get(server.URL + "/api/public/assignment?device_uid=ipad-flow")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assignment status = %d, want 200", resp.StatusCode)
	}
	info := decodeBody(t, resp)
	if info["assignment"] == nil {
		t.Fatal("assignment missing from kiosk info")
	}

	// Place an order without a JWT
	resp = postJSON(t, server.URL+"/api/public/orders/create", "", map[string]interface{}{
		"device_uid": "ipad-flow",
		"items":      []map[string]interface{}{{"product_id": product.ID, "quantity": 2}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order status = %d, want 201", resp.StatusCode)
	}
	order := decodeBody(t, resp)
	orderID := int(order["id"].(float64))

	// Insufficient stock is a 400
	resp = postJSON(t, server.URL+"/api/public/orders/create", "", map[string]interface{}{
		"device_uid": "ipad-flow",
		"items":      []map[string]interface{}{{"product_id": product.ID, "quantity": 50}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("oversized order status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	// Staff moves it through the lifecycle
	for _, status := range []string{"PREPARING", "READY", "DELIVERED"} {
		req, _ := http.NewRequest(http.MethodPatch,
			fmt.Sprintf("%s/api/orders/%d/status", server.URL, orderID),
			bytes.NewReader([]byte(fmt.Sprintf(`{"to_status":%q}`, status))))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("status change failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status change to %s = %d, want 200", status, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// Feedback closes the loop
	resp = postJSON(t, fmt.Sprintf("%s/api/public/orders/%d/feedback", server.URL, orderID), "", map[string]interface{}{
		"device_uid":          "ipad-flow",
		"satisfaction_rating": 5,
		"comment":             "Muy bien",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("feedback status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	// The care assignment ended with the feedback
	resp, err = http.Get(server.URL + "/api/public/assignment?device_uid=ipad-flow")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	info = decodeBody(t, resp)
	if info["assignment"] != nil {
		t.Error("assignment still active after feedback")
	}
}

func TestChangeStatusFieldNames(t *testing.T) {
	server, db := newTestAPI(t)
	token := loginToken(t, server)

	testutil.CreateKiosk(t, db, "ipad-status")
	product := testutil.CreateProduct(t, db, "Jugo de manzana", "DRINK")
	ledger := inventory.NewLedger(db)
	if _, _, err := ledger.Receive(product.ID, 5, nil, ""); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	resp := postJSON(t, server.URL+"/api/public/orders/create", "", map[string]interface{}{
		"device_uid": "ipad-status",
		"items":      []map[string]interface{}{{"product_id": product.ID, "quantity": 1}},
	})
	order := decodeBody(t, resp)
	orderID := int(order["id"].(float64))

	patch := func(payload string) *http.Response {
		req, _ := http.NewRequest(http.MethodPatch,
			fmt.Sprintf("%s/api/orders/%d/status", server.URL, orderID),
			bytes.NewReader([]byte(payload)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("status change failed: %v", err)
		}
		return resp
	}

	// The documented field name
	resp = patch(`{"to_status":"PREPARING"}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("to_status change = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// The legacy field name still works
	resp = patch(`{"status":"READY"}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status change = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// Neither field is a 400, not a silent no-op
	resp = patch(`{"note":"missing status"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty status change = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestOrderTicketPDF(t *testing.T) {
	server, db := newTestAPI(t)
	token := loginToken(t, server)

	testutil.CreateKiosk(t, db, "ipad-pdf")
	product := testutil.CreateProduct(t, db, "Gelatina", "SNACK")
	ledger := inventory.NewLedger(db)
	if _, _, err := ledger.Receive(product.ID, 5, nil, ""); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	resp := postJSON(t, server.URL+"/api/public/orders/create", "", map[string]interface{}{
		"device_uid": "ipad-pdf",
		"items":      []map[string]interface{}{{"product_id": product.ID, "quantity": 1}},
	})
	order := decodeBody(t, resp)
	orderID := int(order["id"].(float64))

	req, _ := http.NewRequest(http.MethodGet,
		fmt.Sprintf("%s/api/orders/%d/ticket", server.URL, orderID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	ticketResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("ticket request failed: %v", err)
	}
	defer ticketResp.Body.Close()
	if ticketResp.StatusCode != http.StatusOK {
		t.Fatalf("ticket status = %d, want 200", ticketResp.StatusCode)
	}
	if ct := ticketResp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %s, want application/pdf", ct)
	}
}

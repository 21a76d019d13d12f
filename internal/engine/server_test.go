package engine

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/crosslane-xyz/crosslane/internal/swap"
)

func testServer(t *testing.T) (*Engine, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	e := testEngine(t)
	r := gin.New()
	NewServer(e).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return e, srv
}

func intentBody(t *testing.T, intent *swap.Intent) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"account":      intent.Account,
		"source_chain": intent.Source.Chain.String(),
		"source_asset": intent.Source.Asset.String(),
		"dest_chain":   intent.Dest.Chain.String(),
		"dest_asset":   intent.Dest.Asset.String(),
		"dest_address": intent.DestAddress,
		"amount":       intent.Amount,
		"min_out":      intent.MinOut,
		"sequence":     intent.Sequence,
		"pub_key":      hex.EncodeToString(intent.PubKey),
		"signature":    hex.EncodeToString(intent.Signature),
		"algo":         uint8(intent.Algo),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func postJSON(t *testing.T, url string, body []byte) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestServer_SubmitAndFetch(t *testing.T) {
	_, srv := testServer(t)
	alice := testIdentity(t, "Alice")
	intent := signedIntent(t, alice, 0)

	resp, body := postJSON(t, srv.URL+"/v1/intents", intentBody(t, intent))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%v)", resp.StatusCode, body)
	}
	orderID := uint64(body["order_id"].(float64))
	if orderID != 1 {
		t.Fatalf("order_id = %d, want 1", orderID)
	}

	getResp, err := http.Get(fmt.Sprintf("%s/v1/orders/%d", srv.URL, orderID))
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", getResp.StatusCode)
	}
	var o orderResponse
	if err := json.NewDecoder(getResp.Body).Decode(&o); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if o.Status != "locked" || o.Account != intent.Account || o.Sequence != 0 {
		t.Fatalf("unexpected order: %+v", o)
	}
	if o.Hash == "" || o.PrevHash != "" {
		t.Fatalf("unexpected hash fields: %+v", o)
	}
}

func TestServer_SequenceEndpoint(t *testing.T) {
	_, srv := testServer(t)
	alice := testIdentity(t, "Alice")

	resp, err := http.Get(srv.URL + "/v1/accounts/" + alice.Principal() + "/sequence")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]uint64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["next_sequence"] != 0 {
		t.Fatalf("next_sequence = %d, want 0", body["next_sequence"])
	}
}

func TestServer_ErrorMapping(t *testing.T) {
	e, srv := testServer(t)
	alice := testIdentity(t, "Alice")
	ctx := context.Background()

	if _, err := e.SubmitIntent(ctx, signedIntent(t, alice, 0)); err != nil {
		t.Fatalf("seed submit: %v", err)
	}

	// Replayed sequence → 409.
	resp, _ := postJSON(t, srv.URL+"/v1/intents", intentBody(t, signedIntent(t, alice, 0)))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("replay status = %d, want 409", resp.StatusCode)
	}

	// Signature failure → 400.
	bad := signedIntent(t, alice, 1)
	bad.Amount++
	resp, _ = postJSON(t, srv.URL+"/v1/intents", intentBody(t, bad))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("tampered status = %d, want 400", resp.StatusCode)
	}

	// Missing required field → 400.
	resp, _ = postJSON(t, srv.URL+"/v1/intents", []byte(`{"account":"x"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed status = %d, want 400", resp.StatusCode)
	}

	// Unknown order → 404.
	getResp, err := http.Get(srv.URL + "/v1/orders/42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing order status = %d, want 404", getResp.StatusCode)
	}

	// Cancel of a settling order → 409.
	if !e.claimSettling(1) {
		t.Fatal("claim failed")
	}
	resp, _ = postJSON(t, srv.URL+"/v1/orders/1/cancel", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("cancel settling status = %d, want 409", resp.StatusCode)
	}
}

func TestServer_CancelAndList(t *testing.T) {
	e, srv := testServer(t)
	alice := testIdentity(t, "Alice")
	ctx := context.Background()

	id, err := e.SubmitIntent(ctx, signedIntent(t, alice, 0))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	resp, body := postJSON(t, fmt.Sprintf("%s/v1/orders/%d/cancel", srv.URL, id), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d (%v)", resp.StatusCode, body)
	}
	if body["status"] != "cancelled" {
		t.Fatalf("cancel body = %v", body)
	}

	listResp, err := http.Get(srv.URL + "/v1/orders")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer listResp.Body.Close()
	var orders []orderResponse
	if err := json.NewDecoder(listResp.Body).Decode(&orders); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(orders) != 1 || orders[0].Status != "cancelled" {
		t.Fatalf("unexpected list: %+v", orders)
	}
}

func TestServer_VerifyChain(t *testing.T) {
	e, srv := testServer(t)
	alice := testIdentity(t, "Alice")
	ctx := context.Background()

	for seq := uint64(0); seq < 2; seq++ {
		if _, err := e.SubmitIntent(ctx, signedIntent(t, alice, seq)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	resp, err := http.Get(srv.URL + "/v1/chain/verify")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status = %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("verify body = %v", body)
	}
}

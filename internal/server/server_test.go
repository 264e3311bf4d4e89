package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karasu-dev/score-ledger-system/internal/ledger"
	"github.com/karasu-dev/score-ledger-system/internal/quota"
	"github.com/karasu-dev/score-ledger-system/internal/storage/memory"
	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T, opts ...ledger.Option) *httptest.Server {
	t.Helper()
	l := ledger.NewLedger(memory.NewMemoryLedgerStore(), opts...)
	ts := httptest.NewServer(New(l, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreditDebitHistoryFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/credit", map[string]any{"uid": 1, "amount": "100", "reason": "reward"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "100", decodeBody(t, resp)["balance"])

	resp = postJSON(t, ts.URL+"/debit", map[string]any{"uid": 1, "amount": "30", "reason": "purchase"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "70", decodeBody(t, resp)["balance"])

	resp = postJSON(t, ts.URL+"/transfer", map[string]any{"from_uid": 1, "to_uid": 2, "amount": "20"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "50", body["from_balance"])
	assert.Equal(t, "20", body["to_balance"])

	historyResp, err := http.Get(ts.URL + "/history?uid=1&limit=5")
	require.NoError(t, err)
	defer historyResp.Body.Close()
	require.Equal(t, http.StatusOK, historyResp.StatusCode)
	entries := decodeBody(t, historyResp)["entries"].([]any)
	assert.Len(t, entries, 3)
}

func TestBalanceEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/balance?uid=7")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", decodeBody(t, resp)["balance"])

	resp, err = http.Get(ts.URL + "/balance?uid=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSufficientEndpoint(t *testing.T) {
	ts := newTestServer(t)

	postJSON(t, ts.URL+"/credit", map[string]any{"uid": 1, "amount": "50"})

	resp, err := http.Get(ts.URL + "/sufficient?uid=1&amount=50")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, true, decodeBody(t, resp)["sufficient"])

	resp, err = http.Get(ts.URL + "/sufficient?uid=1&amount=50.01")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, false, decodeBody(t, resp)["sufficient"])

	// Malformed amount is "no", never an error.
	resp, err = http.Get(ts.URL + "/sufficient?uid=1&amount=lots")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decodeBody(t, resp)["sufficient"])
}

func TestErrorMapping(t *testing.T) {
	limiter := quota.NewDailyLimiter(decimal.NewFromInt(10))
	ts := newTestServer(t, ledger.WithCreditQuota(limiter))

	// Insufficient balance -> 409.
	resp := postJSON(t, ts.URL+"/debit", map[string]any{"uid": 1, "amount": "5"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "insufficient_balance", decodeBody(t, resp)["error"])

	// Quota exceeded -> 429.
	resp = postJSON(t, ts.URL+"/credit", map[string]any{"uid": 1, "amount": "11"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "quota_exceeded", decodeBody(t, resp)["error"])

	// Malformed amount -> 400.
	resp = postJSON(t, ts.URL+"/credit", map[string]any{"uid": 1, "amount": "plenty"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_argument", decodeBody(t, resp)["error"])
}

func TestRankEndpoint(t *testing.T) {
	ts := newTestServer(t)

	for uid, amount := range map[int64]string{1: "30", 2: "90", 3: "60"} {
		postJSON(t, ts.URL+"/credit", map[string]any{"uid": uid, "amount": amount})
	}

	resp := postJSON(t, ts.URL+"/rank", map[string]any{"member_ids": []int64{1, 2, 3}, "limit": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rank := decodeBody(t, resp)["rank"].([]any)
	require.Len(t, rank, 2)
	first := rank[0].(map[string]any)
	assert.Equal(t, float64(2), first["uid"])
}

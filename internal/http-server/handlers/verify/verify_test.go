package verify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger/sl"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/metrics"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/provably_fair"
)

func honest(t *testing.T) Request {
	t.Helper()

	ticket, err := provably_fair.DeriveTicket("client", "server", 7)
	require.NoError(t, err)

	return Request{
		ClientSeed:     "client",
		ServerSeed:     "server",
		ServerSeedHash: provably_fair.Commit("server"),
		Nonce:          7,
		ClaimedTicket:  ticket,
	}
}

func TestVerifyHandler(t *testing.T) {
	good := honest(t)

	substituted := good
	substituted.ServerSeed = "other"

	mismatch := good
	mismatch.ClaimedTicket = good.ClaimedTicket%1_000_000 + 1

	cases := []struct {
		name   string
		req    Request
		status int
		valid  bool
		reason model.ErrorKind
	}{
		{name: "Valid", req: good, status: http.StatusOK, valid: true},
		{name: "SeedSubstituted", req: substituted, status: http.StatusOK, reason: model.KindSeedSubstituted},
		{name: "TicketMismatch", req: mismatch, status: http.StatusOK, reason: model.KindTicketMismatch},
		{name: "MissingServerSeed", req: Request{ClientSeed: "c", ServerSeedHash: "h", ClaimedTicket: 1}, status: http.StatusBadRequest},
		{name: "NegativeNonce", req: Request{ClientSeed: "c", ServerSeed: "s", ServerSeedHash: "h", Nonce: -1, ClaimedTicket: 1}, status: http.StatusBadRequest},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := metrics.New()
			handler := NewVerifier(sl.Discard(), m).New()

			body, err := json.Marshal(tc.req)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body)))

			require.Equal(t, tc.status, rec.Code, rec.Body.String())

			if tc.status != http.StatusOK {
				return
			}

			var got Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

			assert.Equal(t, tc.valid, got.Valid)
			assert.Equal(t, tc.reason, got.Reason)

			label := "valid"
			if !tc.valid {
				label = string(tc.reason)
			}

			assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues(label)))
		})
	}
}

func TestVerifyHandlerReportsComputedTicket(t *testing.T) {
	req := honest(t)
	want := req.ClaimedTicket
	req.ClaimedTicket = want%1_000_000 + 1

	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	NewVerifier(sl.Discard(), metrics.New()).New().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body)))

	var got Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, want, got.ComputedTicket)
	assert.Equal(t, req.ClaimedTicket, got.ClaimedTicket)
}

func TestVerifyHandlerBadJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	NewVerifier(sl.Discard(), metrics.New()).New().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

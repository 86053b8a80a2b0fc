package questionnaire

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(v any) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, pw, ok := r.BasicAuth()
			if !ok || user != "user" || pw != "pw" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(v)
		}
	}
	mux.HandleFunc("/qs/ws/proposal/expname2proposal", reply(map[string]string{"tstlr3216": "LR32"}))
	mux.HandleFunc("/qs/ws/questionnaire/proposals/run16", reply(map[string]Proposal{
		"LR32": {ProposalID: "LR32", Instrument: "TST"},
	}))
	mux.HandleFunc("/qs/ws/questionnaire/run16/LR32", reply(map[string]string{
		"pcdssetup-motors-1-name":   "sam_x",
		"pcdssetup-motors-1-pvbase": "TST:USR:MMS:01",
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	c, err := NewHTTPClient(srv.URL+"/qs", "user", "pw")
	require.NoError(t, err)

	ids, err := c.ExpNameToProposalIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"tstlr3216": "LR32"}, ids)

	props, err := c.ProposalsForRun(ctx, "run16")
	require.NoError(t, err)
	assert.Equal(t, "TST", props["LR32"].Instrument)

	details, err := c.ProposalDetailsForRun(ctx, "run16", "LR32")
	require.NoError(t, err)
	assert.Equal(t, "sam_x", details["pcdssetup-motors-1-name"])
}

func TestHTTPClientBackend(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewHTTPClient(srv.URL+"/qs/", "user", "pw")
	require.NoError(t, err)

	b, err := New(context.Background(), c, "tstlr3216")
	require.NoError(t, err)
	rec, err := b.Find(context.Background(), "sam_x")
	require.NoError(t, err)
	assert.Equal(t, "TST:USR:MMS:01", rec["prefix"])
	assert.Equal(t, "TST", rec["beamline"])
}

func TestHTTPClientStatusError(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewHTTPClient(srv.URL+"/qs", "user", "wrong")
	require.NoError(t, err)

	_, err = c.ExpNameToProposalIDs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewHTTPClientDefaultURL(t *testing.T) {
	c, err := NewHTTPClient("", "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultURL, c.base.String())
}

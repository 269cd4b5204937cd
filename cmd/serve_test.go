package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reconcile-cli/internal/profile"
	"github.com/sells-group/reconcile-cli/internal/recon"
	"github.com/sells-group/reconcile-cli/internal/table"
)

func stubResult(t *testing.T) *recon.Result {
	t.Helper()

	our := table.New("ours.csv", []string{"id", "amount"})
	our.AppendRow([]table.Cell{table.StringCell("A1"), table.StringCell("100.00")})
	our.AppendRow([]table.Cell{table.StringCell("A2"), table.StringCell("50.00")})
	provider := table.New("theirs.csv", []string{"id", "amount"})
	provider.AppendRow([]table.Cell{table.StringCell("A1"), table.StringCell("105.00")})

	res, err := recon.Run(recon.RunConfig{
		Our:           recon.SideConfig{KeyColumn: "id", PriceColumn: "amount"},
		Provider:      recon.SideConfig{KeyColumn: "id", PriceColumn: "amount"},
		ComparePrice:  true,
		ReportMissing: true,
	}, our, provider)
	require.NoError(t, err)
	return res
}

func stubRun(res *recon.Result, err error) runFunc {
	return func(_ context.Context, _ profile.Profile) (*recon.Result, error) {
		return res, err
	}
}

func postRun(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/runs", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

const validRunBody = `{"our":{"source":"ours.csv","key":"id"},"provider":{"source":"theirs.csv","key":"id"}}`

func TestServe_Health(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(&session{}, stubRun(nil, nil)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestServe_RunAndFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(&session{}, stubRun(stubResult(t), nil)))
	defer srv.Close()

	resp := postRun(t, srv, validRunBody)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	runID, _ := created["run_id"].(string)
	assert.NotEmpty(t, runID)
	assert.Contains(t, created, "summary")

	resp, err := http.Get(srv.URL + "/api/runs/last")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, runID, decodeBody(t, resp)["run_id"])
}

func TestServe_Rows(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(&session{}, stubRun(stubResult(t), nil)))
	defer srv.Close()

	resp := postRun(t, srv, validRunBody)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/runs/last/rows")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	// Discrepancies only by default: the price mismatch and the missing row.
	assert.Len(t, body["rows"], 2)

	resp, err = http.Get(srv.URL + "/api/runs/last/rows?view=all")
	require.NoError(t, err)
	assert.Len(t, decodeBody(t, resp)["rows"], 2)
}

func TestServe_Export(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(&session{}, stubRun(stubResult(t), nil)))
	defer srv.Close()

	resp := postRun(t, srv, validRunBody)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/runs/last/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), "id (OUR)"))
	assert.True(t, strings.Contains(buf.String(), "None"))
}

func TestServe_NoRunYet(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(&session{}, stubRun(nil, nil)))
	defer srv.Close()

	for _, path := range []string{"/api/runs/last", "/api/runs/last/rows", "/api/runs/last/export"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestServe_BadRequests(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(&session{}, stubRun(stubResult(t), nil)))
	defer srv.Close()

	resp := postRun(t, srv, "{not json")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postRun(t, srv, `{"our":{"key":"id"},"provider":{"source":"b.csv"}}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServe_RunFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newRouter(&session{}, stubRun(nil, eris.New("no such column"))))
	defer srv.Close()

	resp := postRun(t, srv, validRunBody)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, decodeBody(t, resp)["error"], "no such column")
}

func TestServe_NewRunReplacesLast(t *testing.T) {
	t.Parallel()

	sess := &session{}
	srv := httptest.NewServer(newRouter(sess, stubRun(stubResult(t), nil)))
	defer srv.Close()

	first := decodeBody(t, postRun(t, srv, validRunBody))
	second := decodeBody(t, postRun(t, srv, validRunBody))
	assert.NotEqual(t, first["run_id"], second["run_id"])

	id, _, ok := sess.get()
	require.True(t, ok)
	assert.Equal(t, second["run_id"], id)
}

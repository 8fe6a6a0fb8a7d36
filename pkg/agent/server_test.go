package agent

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/config"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/profile"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/series"
)

func testServer() *Server {
	return NewServer(config.Default(), nil)
}

func postAnalyze(t *testing.T, srv *Server, req analyzeRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	srv.Handler().ServeHTTP(w, r)
	return w
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	testServer().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyzeConstantSeries(t *testing.T) {
	samples := make(series.Series, 120)
	for i := range samples {
		samples[i] = series.Sample{T: float64(i), V: 30.0}
	}
	w := postAnalyze(t, testServer(), analyzeRequest{Samples: samples})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Components, 1)
	c := resp.Components[0]
	assert.Equal(t, profile.KindConstant, c.Kind)
	assert.Equal(t, 120, c.DurationMinutes)
	assert.Equal(t, 30.0, c.Constant.Value)
}

func TestAnalyzeConfigOverride(t *testing.T) {
	samples := series.Series{{T: 0, V: 30}, {T: 1, V: 30}, {T: 2, V: 30}}
	bad := config.Default()
	bad.DurationGridMinutes = 0
	w := postAnalyze(t, testServer(), analyzeRequest{Samples: samples, Config: &bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeRejectsEmptySeries(t *testing.T) {
	w := postAnalyze(t, testServer(), analyzeRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeRejectsBadBody(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader([]byte("{not json")))
	testServer().Handler().ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeRejectsGet(t *testing.T) {
	w := httptest.NewRecorder()
	testServer().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

package httptrigger_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smilemakc/anacostia/internal/httptrigger"
	"github.com/smilemakc/anacostia/internal/node"
	"github.com/smilemakc/anacostia/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	a := node.New("A", node.KindAction)
	p, err := pipeline.New([]*node.Node{a}, nil)
	require.NoError(t, err)
	return p
}

func TestServer_Health(t *testing.T) {
	s := httptrigger.New(buildTestPipeline(t), nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Status(t *testing.T) {
	s := httptrigger.New(buildTestPipeline(t), nil)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "OFF", out["A"])
}

func TestServer_Trigger_UnknownNode(t *testing.T) {
	s := httptrigger.New(buildTestPipeline(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/nodes/missing/trigger", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Trigger_KnownNode(t *testing.T) {
	p := buildTestPipeline(t)
	s := httptrigger.New(p, nil)

	req := httptest.NewRequest(http.MethodPost, "/nodes/A/trigger", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

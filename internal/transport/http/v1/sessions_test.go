package v1

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphdesk/server/internal/domain"
	"github.com/graphdesk/server/internal/service"
)

func createSession(t *testing.T, svc *service.Service, name string) *domain.Session {
	t.Helper()
	session, err := svc.CreateSession(context.Background(), service.CreateSessionInput{
		Name: name,
		Messages: []domain.Message{
			{ID: "1", Sender: "user", Text: "hi"},
		},
		GraphData: domain.GraphData{
			Nodes: []domain.Node{{ID: "n1", Type: "Requirement"}},
		},
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return session
}

func TestCreateSessionEndpoint(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	body := map[string]any{
		"name":            "design review",
		"description":     "first pass",
		"conversation_id": "c1",
		"transcript_id":   "t1",
		"messages": []map[string]any{
			// Numeric id, the way the front-end synthesizes them.
			{"id": 1757452800123.42, "sender": "user", "text": "hi", "timestamp": "2026-01-02T15:04:05Z"},
		},
		"graph_data": map[string]any{
			"nodes": []map[string]any{{"id": "n1", "type": "Requirement"}},
			"links": []map[string]any{},
		},
	}
	c, rec := jsonRequest(e, http.MethodPost, "/api/sessions", body)
	require.NoError(t, h.CreateSession(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session domain.Session
	decode(t, rec, &session)
	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, session.SessionID, session.LineageID)
	assert.Equal(t, 1, session.Version)
	require.Len(t, session.Messages, 1)
	assert.NotEmpty(t, session.Messages[0].ID)
}

func TestCreateSessionEndpointEmptyName(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	c, rec := jsonRequest(e, http.MethodPost, "/api/sessions", map[string]any{"name": ""})
	require.NoError(t, h.CreateSession(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	decode(t, rec, &resp)
	assert.Equal(t, "name", resp["field"])
}

func TestGetSessionEndpoint(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t)
	session := createSession(t, svc, "s")

	c, rec := jsonRequest(e, http.MethodGet, "/api/sessions/"+session.SessionID, nil)
	c.SetParamNames("session_id")
	c.SetParamValues(session.SessionID)
	require.NoError(t, h.GetSession(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = jsonRequest(e, http.MethodGet, "/api/sessions/missing", nil)
	c.SetParamNames("session_id")
	c.SetParamValues("missing")
	require.NoError(t, h.GetSession(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSessionsEndpoint(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t)
	createSession(t, svc, "one")
	createSession(t, svc, "two")

	c, rec := jsonRequest(e, http.MethodGet, "/api/sessions", nil)
	require.NoError(t, h.ListSessions(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []domain.SessionSummary
	decode(t, rec, &summaries)
	require.Len(t, summaries, 2)
	// Summaries omit the payload but carry counts.
	assert.Equal(t, 1, summaries[0].MessageCount)
	assert.Equal(t, 1, summaries[0].NodeCount)
}

func TestUpdateSessionEndpoint(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t)
	session := createSession(t, svc, "before")

	c, rec := jsonRequest(e, http.MethodPut, "/api/sessions/"+session.SessionID,
		map[string]any{"name": "after"})
	c.SetParamNames("session_id")
	c.SetParamValues(session.SessionID)
	require.NoError(t, h.UpdateSession(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated domain.Session
	decode(t, rec, &updated)
	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, 1, updated.Version)
}

func TestDeleteSessionEndpoint(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t)
	session := createSession(t, svc, "doomed")

	c, rec := jsonRequest(e, http.MethodDelete, "/api/sessions/"+session.SessionID, nil)
	c.SetParamNames("session_id")
	c.SetParamValues(session.SessionID)
	require.NoError(t, h.DeleteSession(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Deleting again reports not found, never a silent success.
	c, rec = jsonRequest(e, http.MethodDelete, "/api/sessions/"+session.SessionID, nil)
	c.SetParamNames("session_id")
	c.SetParamValues(session.SessionID)
	require.NoError(t, h.DeleteSession(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteLockedSessionEndpoint(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t)
	session := createSession(t, svc, "locked: baseline")

	c, rec := jsonRequest(e, http.MethodDelete, "/api/sessions/"+session.SessionID, nil)
	c.SetParamNames("session_id")
	c.SetParamValues(session.SessionID)
	require.NoError(t, h.DeleteSession(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateVersionEndpoint(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t)
	session := createSession(t, svc, "s")

	c, rec := jsonRequest(e, http.MethodPost, "/api/sessions/"+session.SessionID+"/version", nil)
	c.SetParamNames("session_id")
	c.SetParamValues(session.SessionID)
	require.NoError(t, h.CreateVersion(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var v2 domain.Session
	decode(t, rec, &v2)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, session.LineageID, v2.LineageID)

	c, rec = jsonRequest(e, http.MethodGet, "/api/sessions/"+session.SessionID+"/versions", nil)
	c.SetParamNames("session_id")
	c.SetParamValues(session.SessionID)
	require.NoError(t, h.ListVersions(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Versions []domain.VersionInfo `json:"versions"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Versions, 2)
	assert.Equal(t, 1, resp.Versions[0].Version)
	assert.Equal(t, 2, resp.Versions[1].Version)
}

func TestExportSessionEndpoint(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t)
	session := createSession(t, svc, "exported")

	c, rec := jsonRequest(e, http.MethodGet, "/api/sessions/"+session.SessionID+"/export?format=markdown", nil)
	c.SetParamNames("session_id")
	c.SetParamValues(session.SessionID)
	require.NoError(t, h.ExportSession(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var export struct {
		Format      string `json:"format"`
		ContentType string `json:"content_type"`
		Data        string `json:"data"`
	}
	decode(t, rec, &export)
	assert.Equal(t, "markdown", export.Format)
	assert.Equal(t, "text/markdown", export.ContentType)
	assert.Contains(t, export.Data, "# exported")

	c, rec = jsonRequest(e, http.MethodGet, "/api/sessions/"+session.SessionID+"/export?format=pdf", nil)
	c.SetParamNames("session_id")
	c.SetParamValues(session.SessionID)
	require.NoError(t, h.ExportSession(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompareSessionsEndpoint(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t)
	a := createSession(t, svc, "a")
	b := createSession(t, svc, "b")

	c, rec := jsonRequest(e, http.MethodPost, "/api/sessions/compare",
		map[string]string{"session_id1": a.SessionID, "session_id2": b.SessionID})
	require.NoError(t, h.CompareSessions(c))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result domain.ComparisonResult
	decode(t, rec, &result)
	assert.Equal(t, a.SessionID, result.Session1.ID)
	assert.Equal(t, b.SessionID, result.Session2.ID)
	assert.Equal(t, 1.0, result.SimilarityScore)

	c, rec = jsonRequest(e, http.MethodPost, "/api/sessions/compare",
		map[string]string{"session_id1": a.SessionID})
	require.NoError(t, h.CompareSessions(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = jsonRequest(e, http.MethodPost, "/api/sessions/compare",
		map[string]string{"session_id1": a.SessionID, "session_id2": "missing"})
	require.NoError(t, h.CompareSessions(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

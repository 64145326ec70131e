package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"design-sandbox-be/internal/apperr"
	"design-sandbox-be/internal/dto"
	"design-sandbox-be/internal/pkg/serverutils"
	"design-sandbox-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEnrichmentService struct {
	analyzeFn  func(ctx context.Context, itemId uuid.UUID) (*dto.ItemResponse, error)
	embedFn    func(ctx context.Context, itemId uuid.UUID) (*dto.ItemResponse, error)
	briefingFn func(ctx context.Context, itemId uuid.UUID, force bool) (*dto.ItemResponse, error)
}

func (s *stubEnrichmentService) Analyze(ctx context.Context, itemId uuid.UUID) (*dto.ItemResponse, error) {
	return s.analyzeFn(ctx, itemId)
}

func (s *stubEnrichmentService) Embed(ctx context.Context, itemId uuid.UUID) (*dto.ItemResponse, error) {
	return s.embedFn(ctx, itemId)
}

func (s *stubEnrichmentService) GenerateBriefing(ctx context.Context, itemId uuid.UUID, force bool) (*dto.ItemResponse, error) {
	return s.briefingFn(ctx, itemId, force)
}

func (s *stubEnrichmentService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return nil, nil
}

var _ service.IEnrichmentService = (*stubEnrichmentService)(nil)

func newEnrichmentApp(svc service.IEnrichmentService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewEnrichmentController(svc).RegisterRoutes(api)
	return app
}

func postStage(t *testing.T, app *fiber.App, path string, body interface{}, token string) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestStageRoutesRequireToken(t *testing.T) {
	app := newEnrichmentApp(&stubEnrichmentService{})

	resp := postStage(t, app, "/api/enrich/v1/analyze", dto.StageRequest{ItemId: uuid.New()}, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAnalyzeReturnsUpdatedItem(t *testing.T) {
	itemId := uuid.New()
	svc := &stubEnrichmentService{
		analyzeFn: func(ctx context.Context, id uuid.UUID) (*dto.ItemResponse, error) {
			require.Equal(t, itemId, id)
			return &dto.ItemResponse{Id: id, Title: "analyzed"}, nil
		},
	}
	app := newEnrichmentApp(svc)
	token := testToken(t)

	resp := postStage(t, app, "/api/enrich/v1/analyze", dto.StageRequest{ItemId: itemId}, token)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload dto.ItemResponse
	decodeEnvelope(t, resp, &payload)
	assert.Equal(t, itemId, payload.Id)
}

func TestBriefingConflictMapsTo409(t *testing.T) {
	svc := &stubEnrichmentService{
		briefingFn: func(ctx context.Context, id uuid.UUID, force bool) (*dto.ItemResponse, error) {
			require.False(t, force)
			return nil, apperr.ErrBriefingExists
		},
	}
	app := newEnrichmentApp(svc)
	token := testToken(t)

	resp := postStage(t, app, "/api/enrich/v1/briefing", dto.BriefingRequest{ItemId: uuid.New()}, token)
	defer resp.Body.Close()

	require.Equal(t, http.StatusConflict, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var conflict dto.BriefingConflictResponse
	require.NoError(t, json.Unmarshal(raw, &conflict))
	assert.True(t, conflict.Conflict)
	assert.True(t, conflict.RequiresConfirmation)
}

func TestBriefingForcePassedThrough(t *testing.T) {
	var gotForce bool
	svc := &stubEnrichmentService{
		briefingFn: func(ctx context.Context, id uuid.UUID, force bool) (*dto.ItemResponse, error) {
			gotForce = force
			return &dto.ItemResponse{Id: id, Briefing: "rewritten"}, nil
		},
	}
	app := newEnrichmentApp(svc)
	token := testToken(t)

	resp := postStage(t, app, "/api/enrich/v1/briefing", dto.BriefingRequest{ItemId: uuid.New(), Force: true}, token)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, gotForce)
}

func TestStageRequestValidatesItemId(t *testing.T) {
	app := newEnrichmentApp(&stubEnrichmentService{})
	token := testToken(t)

	resp := postStage(t, app, "/api/enrich/v1/embed", map[string]interface{}{}, token)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

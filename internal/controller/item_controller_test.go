package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"design-sandbox-be/internal/apperr"
	"design-sandbox-be/internal/dto"
	"design-sandbox-be/internal/pkg/serverutils"
	"design-sandbox-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubItemService struct {
	listFn   func(ctx context.Context, categoryId, componentKey string) (*dto.ListItemsResponse, error)
	uploadFn func(ctx context.Context, req *dto.UploadItemRequest) (*dto.ItemResponse, error)
	updateFn func(ctx context.Context, req *dto.UpdateItemRequest) (*dto.ItemResponse, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (s *stubItemService) List(ctx context.Context, categoryId, componentKey string) (*dto.ListItemsResponse, error) {
	return s.listFn(ctx, categoryId, componentKey)
}

func (s *stubItemService) Upload(ctx context.Context, req *dto.UploadItemRequest, _ *multipart.FileHeader, _ func(*multipart.FileHeader, string) error) (*dto.ItemResponse, error) {
	return s.uploadFn(ctx, req)
}

func (s *stubItemService) Update(ctx context.Context, req *dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	return s.updateFn(ctx, req)
}

func (s *stubItemService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

type stubSearchService struct {
	searchFn func(ctx context.Context, req *dto.SearchItemsRequest) (*dto.SearchItemsResponse, error)
}

func (s *stubSearchService) Search(ctx context.Context, req *dto.SearchItemsRequest) (*dto.SearchItemsResponse, error) {
	return s.searchFn(ctx, req)
}

var _ service.IItemService = (*stubItemService)(nil)
var _ service.ISearchService = (*stubSearchService)(nil)

func newTestApp(item service.IItemService, search service.ISearchService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewItemController(item, search).RegisterRoutes(api)
	return app
}

func testToken(t *testing.T) string {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.New().String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func decodeEnvelope(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
}

func TestListPassesScopeThrough(t *testing.T) {
	var gotCategory, gotComponent string
	item := &stubItemService{
		listFn: func(ctx context.Context, categoryId, componentKey string) (*dto.ListItemsResponse, error) {
			gotCategory, gotComponent = categoryId, componentKey
			return &dto.ListItemsResponse{Items: []*dto.ItemResponse{}}, nil
		},
	}
	app := newTestApp(item, &stubSearchService{})

	req := httptest.NewRequest(http.MethodGet, "/api/item/v1?category_id=heroes&component_key=button", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "heroes", gotCategory)
	assert.Equal(t, "button", gotComponent)
}

func TestSearchValidatesQuery(t *testing.T) {
	search := &stubSearchService{
		searchFn: func(ctx context.Context, req *dto.SearchItemsRequest) (*dto.SearchItemsResponse, error) {
			t.Fatal("service must not be reached on validation failure")
			return nil, nil
		},
	}
	app := newTestApp(&stubItemService{}, search)

	body, _ := json.Marshal(dto.SearchItemsRequest{Query: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/item/v1/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchReturnsScoredItems(t *testing.T) {
	score := 0.87
	search := &stubSearchService{
		searchFn: func(ctx context.Context, req *dto.SearchItemsRequest) (*dto.SearchItemsResponse, error) {
			return &dto.SearchItemsResponse{
				Items: []*dto.ItemResponse{{Id: uuid.New(), Title: "hit", Score: &score}},
				Space: "full",
			}, nil
		},
	}
	app := newTestApp(&stubItemService{}, search)

	body, _ := json.Marshal(dto.SearchItemsRequest{Query: "neon"})
	req := httptest.NewRequest(http.MethodPost, "/api/item/v1/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload dto.SearchItemsResponse
	decodeEnvelope(t, resp, &payload)
	require.Len(t, payload.Items, 1)
	require.NotNil(t, payload.Items[0].Score)
	assert.InDelta(t, 0.87, *payload.Items[0].Score, 1e-9)
}

func TestUploadRequiresToken(t *testing.T) {
	app := newTestApp(&stubItemService{}, &stubSearchService{})

	req := httptest.NewRequest(http.MethodPost, "/api/item/v1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUploadSplitsTags(t *testing.T) {
	var gotReq *dto.UploadItemRequest
	item := &stubItemService{
		uploadFn: func(ctx context.Context, req *dto.UploadItemRequest) (*dto.ItemResponse, error) {
			gotReq = req
			return &dto.ItemResponse{Id: uuid.New(), Title: req.Title}, nil
		},
	}
	app := newTestApp(item, &stubSearchService{})
	token := testToken(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("title", "Neon hero"))
	require.NoError(t, writer.WriteField("tags", "neon, dark , ,glow"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/item/v1", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, gotReq)
	assert.Equal(t, []string{"neon", "dark", "glow"}, gotReq.Tags)
}

func TestUpdateRejectsBadId(t *testing.T) {
	app := newTestApp(&stubItemService{}, &stubSearchService{})
	token := testToken(t)

	req := httptest.NewRequest(http.MethodPut, "/api/item/v1/not-a-uuid", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteMapsNotFound(t *testing.T) {
	item := &stubItemService{
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			return apperr.ErrNotFound
		},
	}
	app := newTestApp(item, &stubSearchService{})
	token := testToken(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/item/v1/"+uuid.New().String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

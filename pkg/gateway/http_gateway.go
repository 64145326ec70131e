// Package gateway provides the HTTP client for the sandbox item service,
// implementing the remote boundary the lifecycle controller drives.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"design-sandbox-be/internal/apperr"
	"design-sandbox-be/internal/dto"
	"design-sandbox-be/internal/entity"
	"design-sandbox-be/pkg/lifecycle"

	"github.com/google/uuid"
)

// TokenSource supplies the bearer credential for authenticated calls. List
// and search endpoints are open and never consult it.
type TokenSource func() (string, error)

// HTTPGateway talks to the item service over its REST API.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
}

func NewHTTPGateway(baseURL string, tokens TokenSource) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		tokens:  tokens,
	}
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (g *HTTPGateway) ListItems(ctx context.Context, scope lifecycle.ListScope) (*lifecycle.ListResult, error) {
	endpoint := g.baseURL + "/item/v1"
	query := url.Values{}
	if scope.CategoryId != "" {
		query.Set("category_id", scope.CategoryId)
	}
	if scope.ComponentKey != "" {
		query.Set("component_key", scope.ComponentKey)
	}
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var payload dto.ListItemsResponse
	if err := g.do(req, false, &payload); err != nil {
		return nil, err
	}

	return &lifecycle.ListResult{
		Items:    toEntities(payload.Items),
		AllItems: toEntities(payload.AllItems),
	}, nil
}

func (g *HTTPGateway) UploadItem(ctx context.Context, upload lifecycle.UploadRequest) (*entity.Item, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"category_id":   upload.CategoryId,
		"component_key": upload.ComponentKey,
		"title":         upload.Title,
		"notes":         upload.Notes,
		"tags":          strings.Join(upload.Tags, ","),
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}

	part, err := writer.CreateFormFile("asset", upload.FileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, upload.File); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/item/v1", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var payload dto.ItemResponse
	if err := g.do(req, true, &payload); err != nil {
		return nil, err
	}
	return toEntity(&payload), nil
}

func (g *HTTPGateway) UpdateItem(ctx context.Context, update lifecycle.UpdateRequest) (*entity.Item, error) {
	body := dto.UpdateItemRequest{
		Title: update.Title,
		Notes: update.Notes,
	}
	if update.Tags != nil {
		body.Tags = *update.Tags
	}

	req, err := g.jsonRequest(ctx, http.MethodPut, "/item/v1/"+update.Id.String(), body)
	if err != nil {
		return nil, err
	}

	var payload dto.ItemResponse
	if err := g.do(req, true, &payload); err != nil {
		return nil, err
	}
	return toEntity(&payload), nil
}

func (g *HTTPGateway) DeleteItem(ctx context.Context, id uuid.UUID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, g.baseURL+"/item/v1/"+id.String(), nil)
	if err != nil {
		return err
	}
	return g.do(req, true, nil)
}

func (g *HTTPGateway) Analyze(ctx context.Context, itemId uuid.UUID) (*entity.Item, error) {
	return g.stage(ctx, "/enrich/v1/analyze", dto.StageRequest{ItemId: itemId})
}

func (g *HTTPGateway) Embed(ctx context.Context, itemId uuid.UUID) (*entity.Item, error) {
	return g.stage(ctx, "/enrich/v1/embed", dto.StageRequest{ItemId: itemId})
}

func (g *HTTPGateway) GenerateBriefing(ctx context.Context, itemId uuid.UUID, force bool) (*entity.Item, error) {
	return g.stage(ctx, "/enrich/v1/briefing", dto.BriefingRequest{ItemId: itemId, Force: force})
}

func (g *HTTPGateway) stage(ctx context.Context, path string, body interface{}) (*entity.Item, error) {
	req, err := g.jsonRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	var payload dto.ItemResponse
	if err := g.do(req, true, &payload); err != nil {
		return nil, err
	}
	return toEntity(&payload), nil
}

func (g *HTTPGateway) Search(ctx context.Context, search lifecycle.SearchRequest) ([]entity.Item, error) {
	body := dto.SearchItemsRequest{
		Query:        search.Query,
		CategoryId:   search.CategoryId,
		ComponentKey: search.ComponentKey,
		Limit:        search.Limit,
		Threshold:    search.Threshold,
		Space:        string(search.Space),
	}

	req, err := g.jsonRequest(ctx, http.MethodPost, "/item/v1/search", body)
	if err != nil {
		return nil, err
	}

	var payload dto.SearchItemsResponse
	if err := g.do(req, false, &payload); err != nil {
		return nil, err
	}
	return toEntities(payload.Items), nil
}

func (g *HTTPGateway) jsonRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do executes the request, translating the service's error responses into
// the sentinel errors the controller branches on.
func (g *HTTPGateway) do(req *http.Request, authed bool, out interface{}) error {
	if authed {
		token, err := g.tokens()
		if err != nil {
			return fmt.Errorf("acquire token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return apperr.ErrBriefingExists
	case resp.StatusCode == http.StatusNotFound:
		return apperr.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return apperr.ErrUnauthorized
	case resp.StatusCode >= 400:
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Message != "" {
			return fmt.Errorf("item service: %s", env.Message)
		}
		return fmt.Errorf("item service: status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return json.Unmarshal(env.Data, out)
}

func toEntity(r *dto.ItemResponse) *entity.Item {
	item := &entity.Item{
		Id:           r.Id,
		CategoryId:   r.CategoryId,
		ComponentKey: r.ComponentKey,
		Title:        r.Title,
		Notes:        r.Notes,
		Tags:         r.Tags,
		Briefing:     r.Briefing,
		Analysis:     r.Analysis,
		Annotations:  r.Annotations,
		AssetURL:     r.AssetURL,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Score != nil {
		item.Score = float32(*r.Score)
	}
	return item
}

func toEntities(rs []*dto.ItemResponse) []entity.Item {
	items := make([]entity.Item, 0, len(rs))
	for _, r := range rs {
		items = append(items, *toEntity(r))
	}
	return items
}

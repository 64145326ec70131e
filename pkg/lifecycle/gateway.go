package lifecycle

import (
	"context"
	"io"

	"design-sandbox-be/internal/entity"

	"github.com/google/uuid"
)

// ListScope narrows a list request to a category and/or component. Empty
// fields mean unscoped.
type ListScope struct {
	CategoryId   string
	ComponentKey string
}

// ListResult carries the scoped list plus, when the server provides it, the
// broader unscoped set used for count computation.
type ListResult struct {
	Items    []entity.Item
	AllItems []entity.Item
}

// UploadRequest carries the asset and its metadata for item creation.
type UploadRequest struct {
	CategoryId   string
	ComponentKey string
	Title        string
	Notes        string
	Tags         []string
	FileName     string
	File         io.Reader
}

// UpdateRequest is a partial item edit; nil pointers leave fields untouched.
type UpdateRequest struct {
	Id    uuid.UUID
	Title *string
	Notes *string
	Tags  *[]string
}

// SearchRequest is a scoped similarity query against one embedding space.
type SearchRequest struct {
	Query        string
	CategoryId   string
	ComponentKey string
	Limit        int
	Threshold    float64
	Space        entity.SearchSpace
}

// Gateway is the remote service boundary the controller drives. All calls
// are synchronous from the caller's perspective; cancellation goes through
// the context. GenerateBriefing reports the existing-briefing conflict by
// returning apperr.ErrBriefingExists.
type Gateway interface {
	ListItems(ctx context.Context, scope ListScope) (*ListResult, error)
	UploadItem(ctx context.Context, req UploadRequest) (*entity.Item, error)
	UpdateItem(ctx context.Context, req UpdateRequest) (*entity.Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	Analyze(ctx context.Context, itemId uuid.UUID) (*entity.Item, error)
	Embed(ctx context.Context, itemId uuid.UUID) (*entity.Item, error)
	GenerateBriefing(ctx context.Context, itemId uuid.UUID, force bool) (*entity.Item, error)
	Search(ctx context.Context, req SearchRequest) ([]entity.Item, error)
}

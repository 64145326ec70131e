package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"design-sandbox-be/internal/apperr"
	"design-sandbox-be/internal/entity"
	"design-sandbox-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// Stage is one remote enrichment operation applied to a single item.
type Stage string

const (
	StageAnalyze  Stage = "analyze"
	StageEmbed    Stage = "embed"
	StageBriefing Stage = "briefing"
)

// PipelineStatus tracks the automatic post-upload stage sequence. It is
// session state, not per-item state.
type PipelineStatus string

const (
	PipelineIdle      PipelineStatus = "idle"
	PipelineAnalyzing PipelineStatus = "analyzing"
	PipelineBriefing  PipelineStatus = "briefing"
	PipelineDone      PipelineStatus = "done"
	PipelineError     PipelineStatus = "error"
)

// SearchMode selects how the search query is obtained.
type SearchMode string

const (
	SearchModeQuery   SearchMode = "query"
	SearchModeSimilar SearchMode = "similar"
)

const (
	searchLimit     = 20
	searchThreshold = 0.3
)

// Controller drives reference items through their enrichment stages,
// coordinates similarity search over the resulting embeddings, and keeps
// the item cache consistent while user actions overlap in flight.
type Controller struct {
	gateway   Gateway
	notifier  Notifier
	confirmer Confirmer
	logger    logger.ILogger

	supersede *supersessionManager
	cache     *itemCache

	// pipelineStages is the fixed post-upload sequence. Configurable at
	// construction; stage failures abort the remainder of the sequence.
	pipelineStages []Stage

	mu           sync.Mutex
	selectedId   *uuid.UUID
	categoryId   string
	componentKey string
	space        entity.SearchSpace
	loading      bool
	searching    bool
	busy         map[Stage]bool
	pipeline     PipelineStatus
}

// Option configures a Controller.
type Option func(*Controller)

// WithPipelineStages overrides the default post-upload sequence
// (analyze then briefing).
func WithPipelineStages(stages ...Stage) Option {
	return func(c *Controller) {
		c.pipelineStages = stages
	}
}

func NewController(gw Gateway, notifier Notifier, confirmer Confirmer, log logger.ILogger, opts ...Option) *Controller {
	c := &Controller{
		gateway:        gw,
		notifier:       notifier,
		confirmer:      confirmer,
		logger:         log,
		supersede:      newSupersessionManager(),
		cache:          newItemCache(),
		pipelineStages: []Stage{StageAnalyze, StageBriefing},
		space:          entity.SpaceFull,
		busy:           make(map[Stage]bool),
		pipeline:       PipelineIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- session state -------------------------------------------------------

func (c *Controller) SelectItem(id *uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedId = id
}

func (c *Controller) SelectedItem() *entity.Item {
	c.mu.Lock()
	id := c.selectedId
	c.mu.Unlock()
	if id == nil {
		return nil
	}
	return c.cache.Find(*id)
}

// SetCategoryFilter changes the active category scope and reloads the list.
// Any load still pending for the previous scope is superseded.
func (c *Controller) SetCategoryFilter(ctx context.Context, categoryId string) {
	c.mu.Lock()
	c.categoryId = categoryId
	c.mu.Unlock()
	c.Load(ctx)
}

func (c *Controller) SetComponentFilter(ctx context.Context, componentKey string) {
	c.mu.Lock()
	c.componentKey = componentKey
	c.mu.Unlock()
	c.Load(ctx)
}

func (c *Controller) SetSearchSpace(space entity.SearchSpace) error {
	if !space.Valid() {
		return fmt.Errorf("%w: unknown search space %q", apperr.ErrValidation, space)
	}
	c.mu.Lock()
	c.space = space
	c.mu.Unlock()
	c.notifier.StateChanged("search_space", string(space))
	return nil
}

func (c *Controller) SearchSpace() entity.SearchSpace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.space
}

func (c *Controller) Visible() []entity.Item {
	return c.cache.Visible()
}

func (c *Controller) AllItems() []entity.Item {
	return c.cache.All()
}

func (c *Controller) CountsByKey() map[string]int {
	return c.cache.CountsByKey()
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Controller) Searching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searching
}

func (c *Controller) StageBusy(stage Stage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[stage]
}

func (c *Controller) PipelineStatus() PipelineStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipeline
}

func (c *Controller) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
	c.notifier.StateChanged("loading", v)
}

// beginLoad issues the load token and raises the loading indicator in one
// critical section. Done as two steps, a load superseded in between could
// raise the flag after its successor already cleared it, leaving the
// indicator stuck.
func (c *Controller) beginLoad(ctx context.Context) (context.Context, token) {
	c.mu.Lock()
	reqCtx, tok := c.supersede.begin(ctx, classLoad)
	c.loading = true
	c.mu.Unlock()
	c.notifier.StateChanged("loading", true)
	return reqCtx, tok
}

// endLoad clears the loading indicator unless tok has been superseded, in
// which case the indicator belongs to the newer load.
func (c *Controller) endLoad(tok token) {
	c.mu.Lock()
	if !c.supersede.isCurrent(tok) {
		c.mu.Unlock()
		return
	}
	c.loading = false
	c.mu.Unlock()
	c.notifier.StateChanged("loading", false)
}

func (c *Controller) setSearching(v bool) {
	c.mu.Lock()
	c.searching = v
	c.mu.Unlock()
	c.notifier.StateChanged("searching", v)
}

func (c *Controller) setBusy(stage Stage, v bool) {
	c.mu.Lock()
	c.busy[stage] = v
	c.mu.Unlock()
	c.notifier.StateChanged("stage_busy:"+string(stage), v)
}

func (c *Controller) setPipeline(status PipelineStatus) {
	c.mu.Lock()
	c.pipeline = status
	c.mu.Unlock()
	c.notifier.StateChanged("pipeline_status", string(status))
}

func (c *Controller) publishItems() {
	c.notifier.StateChanged("visible_items", c.cache.Visible())
	c.notifier.StateChanged("counts", c.cache.CountsByKey())
}

func (c *Controller) currentScope() ListScope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ListScope{CategoryId: c.categoryId, ComponentKey: c.componentKey}
}

// resolveTarget picks the explicit id when given, otherwise the selection
// as it stands right now. Reading the selection at call time rather than
// capturing it earlier keeps an already-started stage from acting on a
// selection that changed underneath it.
func (c *Controller) resolveTarget(explicit *uuid.UUID) *uuid.UUID {
	if explicit != nil {
		id := *explicit
		return &id
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectedId == nil {
		return nil
	}
	id := *c.selectedId
	return &id
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// --- load ----------------------------------------------------------------

// Load fetches the item list for the current filter scope and replaces the
// visible list and the full-set cache. A load issued while an earlier one
// is pending supersedes it; the stale result is discarded silently.
func (c *Controller) Load(ctx context.Context) {
	scope := c.currentScope()
	reqCtx, tok := c.beginLoad(ctx)

	result, err := c.gateway.ListItems(reqCtx, scope)
	if !c.supersede.isCurrent(tok) {
		c.logger.Debug("Lifecycle", "Discarding superseded load result", nil)
		return
	}
	c.supersede.finish(tok)

	if err != nil {
		if isCancelled(err) {
			return
		}
		c.endLoad(tok)
		c.logger.Error("Lifecycle", "Item list load failed", map[string]interface{}{"error": err.Error()})
		c.notifier.Toast(ToastError, "Failed to load items: "+err.Error())
		return
	}

	c.cache.ReplaceVisible(result.Items)
	all := result.AllItems
	if len(all) == 0 {
		all = result.Items
	}
	c.cache.SetAll(all)
	c.publishItems()
	c.endLoad(tok)
}

// --- search --------------------------------------------------------------

// Search runs a similarity query against the current search space. In query
// mode the given text is used verbatim after trimming; in similar mode a
// query is synthesized from the currently selected item. Validation
// failures notify the user and make no network call.
func (c *Controller) Search(ctx context.Context, query string, mode SearchMode) {
	text, ok := c.buildQuery(query, mode)
	if !ok {
		return
	}

	scope := c.currentScope()
	space := c.SearchSpace()

	reqCtx, tok := c.supersede.begin(ctx, classSearch)
	c.setSearching(true)
	c.setLoading(true)
	defer func() {
		c.setSearching(false)
		c.setLoading(false)
	}()

	results, err := c.gateway.Search(reqCtx, SearchRequest{
		Query:        text,
		CategoryId:   scope.CategoryId,
		ComponentKey: scope.ComponentKey,
		Limit:        searchLimit,
		Threshold:    searchThreshold,
		Space:        space,
	})
	if !c.supersede.isCurrent(tok) {
		c.logger.Debug("Lifecycle", "Discarding superseded search result", nil)
		return
	}
	c.supersede.finish(tok)

	if err != nil {
		if isCancelled(err) {
			return
		}
		c.logger.Error("Lifecycle", "Search failed", map[string]interface{}{"error": err.Error()})
		c.notifier.Toast(ToastError, "Search failed: "+err.Error())
		c.Load(ctx)
		return
	}

	c.cache.ReplaceVisible(results)
	c.publishItems()
	c.notifier.Toast(ToastSuccess, fmt.Sprintf("Found %d items (%s space)", len(results), space))
}

func (c *Controller) buildQuery(query string, mode SearchMode) (string, bool) {
	switch mode {
	case SearchModeSimilar:
		item := c.SelectedItem()
		if item == nil {
			c.notifier.Toast(ToastError, "Select an item to search for similar ones")
			return "", false
		}
		text := synthesizeQuery(item)
		if text == "" {
			c.notifier.Toast(ToastError, "Selected item has no content to search with")
			return "", false
		}
		return text, true
	default:
		text := strings.TrimSpace(query)
		if text == "" {
			c.notifier.Toast(ToastError, "Enter a search query")
			return "", false
		}
		return text, true
	}
}

// synthesizeQuery builds the similar-mode query text. A briefing, when
// present, is used alone; otherwise title, notes, tags and the analysis
// transfer notes are joined as sentences.
func synthesizeQuery(item *entity.Item) string {
	if item.HasBriefing() {
		return strings.TrimSpace(item.Briefing)
	}

	var parts []string
	if s := strings.TrimSpace(item.Title); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(item.Notes); s != "" {
		parts = append(parts, s)
	}
	if len(item.Tags) > 0 {
		parts = append(parts, strings.Join(item.Tags, ", "))
	}
	if item.Analysis != nil {
		if s := strings.TrimSpace(item.Analysis.TransferNotes); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.TrimSpace(strings.Join(parts, ". "))
}

// --- stages --------------------------------------------------------------

// Analyze runs the analysis stage for the given item, or the current
// selection when id is nil.
func (c *Controller) Analyze(ctx context.Context, itemId *uuid.UUID) error {
	return c.runStage(ctx, StageAnalyze, itemId, c.gateway.Analyze, "Item analyzed")
}

// Embed computes and stores embeddings for the given item, or the current
// selection when id is nil.
func (c *Controller) Embed(ctx context.Context, itemId *uuid.UUID) error {
	return c.runStage(ctx, StageEmbed, itemId, c.gateway.Embed, "Item embedded")
}

func (c *Controller) runStage(ctx context.Context, stage Stage, itemId *uuid.UUID, call func(context.Context, uuid.UUID) (*entity.Item, error), successMsg string) error {
	target := c.resolveTarget(itemId)
	if target == nil {
		return nil
	}

	c.setBusy(stage, true)
	defer c.setBusy(stage, false)

	item, err := call(ctx, *target)
	if err != nil {
		if isCancelled(err) {
			return nil
		}
		c.logger.Error("Lifecycle", "Stage failed", map[string]interface{}{"stage": string(stage), "item_id": target.String(), "error": err.Error()})
		c.notifier.Toast(ToastError, fmt.Sprintf("%s failed: %s", stage, err.Error()))
		return err
	}

	c.cache.Upsert(*item)
	c.publishItems()
	c.notifier.Toast(ToastSuccess, successMsg)
	return nil
}

// GenerateBriefing runs the briefing stage. When the server reports that a
// briefing already exists, the overwrite is gated behind a blocking user
// confirmation; declining leaves the existing briefing untouched and makes
// no further network call.
func (c *Controller) GenerateBriefing(ctx context.Context, itemId *uuid.UUID) error {
	target := c.resolveTarget(itemId)
	if target == nil {
		return nil
	}
	return c.generateBriefing(ctx, *target, false)
}

func (c *Controller) generateBriefing(ctx context.Context, id uuid.UUID, force bool) error {
	c.setBusy(StageBriefing, true)
	defer c.setBusy(StageBriefing, false)

	item, err := c.gateway.GenerateBriefing(ctx, id, force)
	if err != nil {
		if isCancelled(err) {
			return nil
		}
		if !force && errors.Is(err, apperr.ErrBriefingExists) {
			// Release the busy flag while the user decides; the retry
			// re-acquires it so observers see one logical operation.
			c.setBusy(StageBriefing, false)
			confirmed, cerr := c.confirmer.Confirm(ctx, "A briefing already exists for this item. Overwrite it?")
			if cerr != nil || !confirmed {
				return nil
			}
			return c.generateBriefing(ctx, id, true)
		}
		c.logger.Error("Lifecycle", "Briefing generation failed", map[string]interface{}{"item_id": id.String(), "error": err.Error()})
		c.notifier.Toast(ToastError, "Briefing generation failed: "+err.Error())
		return err
	}

	c.cache.Upsert(*item)
	c.publishItems()
	c.notifier.Toast(ToastSuccess, "Briefing generated")
	return nil
}

// --- upload & edits ------------------------------------------------------

// Upload creates a new item from an asset and runs the post-upload
// enrichment pipeline. The upload result is final once the server accepts
// it; a pipeline failure is reported through the pipeline status but never
// rolls back or fails the upload.
func (c *Controller) Upload(ctx context.Context, req UploadRequest) (*entity.Item, error) {
	item, err := c.gateway.UploadItem(ctx, req)
	if err != nil {
		c.notifier.Toast(ToastError, "Upload failed: "+err.Error())
		return nil, err
	}

	c.cache.Upsert(*item)
	id := item.Id
	c.SelectItem(&id)
	c.publishItems()
	c.notifier.Toast(ToastSuccess, "Item uploaded")

	c.runPipeline(ctx, id)
	return item, nil
}

func (c *Controller) runPipeline(ctx context.Context, itemId uuid.UUID) {
	for _, stage := range c.pipelineStages {
		switch stage {
		case StageBriefing:
			c.setPipeline(PipelineBriefing)
		default:
			c.setPipeline(PipelineAnalyzing)
		}

		var err error
		switch stage {
		case StageAnalyze:
			err = c.Analyze(ctx, &itemId)
		case StageEmbed:
			err = c.Embed(ctx, &itemId)
		case StageBriefing:
			err = c.GenerateBriefing(ctx, &itemId)
		}
		if err != nil {
			c.setPipeline(PipelineError)
			c.logger.Warn("Lifecycle", "Post-upload pipeline halted", map[string]interface{}{"stage": string(stage), "item_id": itemId.String()})
			return
		}
	}
	c.setPipeline(PipelineDone)
	c.notifier.Toast(ToastSuccess, "Item enrichment complete")
}

// Update applies a partial edit to an item and merges the server's full
// copy back into the cache.
func (c *Controller) Update(ctx context.Context, req UpdateRequest) error {
	item, err := c.gateway.UpdateItem(ctx, req)
	if err != nil {
		c.notifier.Toast(ToastError, "Update failed: "+err.Error())
		return err
	}
	c.cache.Upsert(*item)
	c.publishItems()
	c.notifier.Toast(ToastSuccess, "Item updated")
	return nil
}

// Delete removes an item remotely and from the cache. A deleted item that
// was selected is deselected.
func (c *Controller) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.gateway.DeleteItem(ctx, id); err != nil {
		c.notifier.Toast(ToastError, "Delete failed: "+err.Error())
		return err
	}

	c.cache.Remove(id)
	c.mu.Lock()
	if c.selectedId != nil && *c.selectedId == id {
		c.selectedId = nil
	}
	c.mu.Unlock()
	c.publishItems()
	c.notifier.Toast(ToastSuccess, "Item deleted")
	return nil
}

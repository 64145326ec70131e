package lifecycle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"design-sandbox-be/internal/apperr"
	"design-sandbox-be/internal/entity"
	"design-sandbox-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu    sync.Mutex
	calls map[string]int

	listFn     func(ctx context.Context, scope ListScope) (*ListResult, error)
	uploadFn   func(ctx context.Context, req UploadRequest) (*entity.Item, error)
	updateFn   func(ctx context.Context, req UpdateRequest) (*entity.Item, error)
	deleteFn   func(ctx context.Context, id uuid.UUID) error
	analyzeFn  func(ctx context.Context, id uuid.UUID) (*entity.Item, error)
	embedFn    func(ctx context.Context, id uuid.UUID) (*entity.Item, error)
	briefingFn func(ctx context.Context, id uuid.UUID, force bool) (*entity.Item, error)
	searchFn   func(ctx context.Context, req SearchRequest) ([]entity.Item, error)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: make(map[string]int)}
}

func (g *fakeGateway) record(op string) {
	g.mu.Lock()
	g.calls[op]++
	g.mu.Unlock()
}

func (g *fakeGateway) callCount(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *fakeGateway) ListItems(ctx context.Context, scope ListScope) (*ListResult, error) {
	g.record("list")
	if g.listFn != nil {
		return g.listFn(ctx, scope)
	}
	return &ListResult{}, nil
}

func (g *fakeGateway) UploadItem(ctx context.Context, req UploadRequest) (*entity.Item, error) {
	g.record("upload")
	if g.uploadFn != nil {
		return g.uploadFn(ctx, req)
	}
	item := testItem("uploaded")
	return &item, nil
}

func (g *fakeGateway) UpdateItem(ctx context.Context, req UpdateRequest) (*entity.Item, error) {
	g.record("update")
	if g.updateFn != nil {
		return g.updateFn(ctx, req)
	}
	item := testItem("updated")
	item.Id = req.Id
	return &item, nil
}

func (g *fakeGateway) DeleteItem(ctx context.Context, id uuid.UUID) error {
	g.record("delete")
	if g.deleteFn != nil {
		return g.deleteFn(ctx, id)
	}
	return nil
}

func (g *fakeGateway) Analyze(ctx context.Context, id uuid.UUID) (*entity.Item, error) {
	g.record("analyze")
	if g.analyzeFn != nil {
		return g.analyzeFn(ctx, id)
	}
	item := testItem("analyzed")
	item.Id = id
	return &item, nil
}

func (g *fakeGateway) Embed(ctx context.Context, id uuid.UUID) (*entity.Item, error) {
	g.record("embed")
	if g.embedFn != nil {
		return g.embedFn(ctx, id)
	}
	item := testItem("embedded")
	item.Id = id
	return &item, nil
}

func (g *fakeGateway) GenerateBriefing(ctx context.Context, id uuid.UUID, force bool) (*entity.Item, error) {
	g.record("briefing")
	if g.briefingFn != nil {
		return g.briefingFn(ctx, id, force)
	}
	item := testItem("briefed")
	item.Id = id
	item.Briefing = "a briefing"
	return &item, nil
}

func (g *fakeGateway) Search(ctx context.Context, req SearchRequest) ([]entity.Item, error) {
	g.record("search")
	if g.searchFn != nil {
		return g.searchFn(ctx, req)
	}
	return nil, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []string
	states map[string]interface{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{states: make(map[string]interface{})}
}

func (n *recordingNotifier) Toast(level string, msg string) {
	n.mu.Lock()
	n.toasts = append(n.toasts, level+": "+msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) StateChanged(field string, value interface{}) {
	n.mu.Lock()
	n.states[field] = value
	n.mu.Unlock()
}

func (n *recordingNotifier) toastCount(level string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, t := range n.toasts {
		if strings.HasPrefix(t, level+":") {
			count++
		}
	}
	return count
}

func testItem(title string) entity.Item {
	return entity.Item{Id: uuid.New(), Title: title}
}

func newTestController(gw Gateway, notifier Notifier, confirmer Confirmer, opts ...Option) *Controller {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if confirmer == nil {
		confirmer = AutoConfirmer{}
	}
	return NewController(gw, notifier, confirmer, logger.NewNopLogger(), opts...)
}

func TestLoadReplacesVisibleAndFullSet(t *testing.T) {
	scoped := []entity.Item{testItem("a"), testItem("b")}
	all := append(append([]entity.Item(nil), scoped...), testItem("c"))

	gw := newFakeGateway()
	gw.listFn = func(ctx context.Context, scope ListScope) (*ListResult, error) {
		return &ListResult{Items: scoped, AllItems: all}, nil
	}

	ctrl := newTestController(gw, nil, nil)
	ctrl.Load(context.Background())

	assert.Len(t, ctrl.Visible(), 2)
	assert.Len(t, ctrl.AllItems(), 3)
	assert.False(t, ctrl.Loading())
}

func TestLoadFallsBackToVisibleForFullSet(t *testing.T) {
	scoped := []entity.Item{testItem("a")}

	gw := newFakeGateway()
	gw.listFn = func(ctx context.Context, scope ListScope) (*ListResult, error) {
		return &ListResult{Items: scoped}, nil
	}

	ctrl := newTestController(gw, nil, nil)
	ctrl.Load(context.Background())

	assert.Len(t, ctrl.AllItems(), 1)
}

func TestLoadSupersededByFilterChange(t *testing.T) {
	itemA := testItem("from-category-a")
	itemB := testItem("from-category-b")

	gates := map[string]chan struct{}{
		"A": make(chan struct{}),
		"B": make(chan struct{}),
	}
	started := make(chan string, 2)

	gw := newFakeGateway()
	gw.listFn = func(ctx context.Context, scope ListScope) (*ListResult, error) {
		started <- scope.CategoryId
		<-gates[scope.CategoryId]
		if scope.CategoryId == "A" {
			return &ListResult{Items: []entity.Item{itemA}}, nil
		}
		return &ListResult{Items: []entity.Item{itemB}}, nil
	}

	ctrl := newTestController(gw, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ctrl.SetCategoryFilter(ctx, "A")
	}()
	require.Equal(t, "A", <-started)

	go func() {
		defer wg.Done()
		ctrl.SetCategoryFilter(ctx, "B")
	}()
	require.Equal(t, "B", <-started)

	// B completes first, then the superseded A response straggles in.
	close(gates["B"])
	time.Sleep(20 * time.Millisecond)
	close(gates["A"])
	wg.Wait()

	visible := ctrl.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, itemB.Id, visible[0].Id)
	assert.False(t, ctrl.Loading())
}

func TestLoadSupersededCompletionOrderIndependent(t *testing.T) {
	// Same race, but the stale response lands before the current one.
	itemA := testItem("stale")
	itemB := testItem("current")

	gates := map[string]chan struct{}{
		"A": make(chan struct{}),
		"B": make(chan struct{}),
	}
	started := make(chan string, 2)
	aDone := make(chan struct{})

	gw := newFakeGateway()
	gw.listFn = func(ctx context.Context, scope ListScope) (*ListResult, error) {
		started <- scope.CategoryId
		<-gates[scope.CategoryId]
		if scope.CategoryId == "A" {
			return &ListResult{Items: []entity.Item{itemA}}, nil
		}
		return &ListResult{Items: []entity.Item{itemB}}, nil
	}

	ctrl := newTestController(gw, nil, nil)
	ctx := context.Background()

	go func() {
		ctrl.SetCategoryFilter(ctx, "A")
		close(aDone)
	}()
	require.Equal(t, "A", <-started)

	done := make(chan struct{})
	go func() {
		ctrl.SetCategoryFilter(ctx, "B")
		close(done)
	}()
	require.Equal(t, "B", <-started)

	close(gates["A"])
	<-aDone
	close(gates["B"])
	<-done

	visible := ctrl.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, itemB.Id, visible[0].Id)
}

func TestConcurrentLoadsLeaveIndicatorClear(t *testing.T) {
	// Token issue and indicator raise happen in one critical section. A load
	// superseded between the two steps would otherwise raise the flag after
	// the superseding load already cleared it, sticking the indicator.
	gw := newFakeGateway()
	gw.listFn = func(ctx context.Context, scope ListScope) (*ListResult, error) {
		return &ListResult{}, nil
	}

	ctrl := newTestController(gw, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctrl.Load(ctx)
		}()
	}
	wg.Wait()

	assert.False(t, ctrl.Loading(), "no load in flight, indicator must be clear")
}

func TestLoadErrorNotifiesAndClearsIndicator(t *testing.T) {
	gw := newFakeGateway()
	gw.listFn = func(ctx context.Context, scope ListScope) (*ListResult, error) {
		return nil, errors.New("boom")
	}

	notifier := newRecordingNotifier()
	ctrl := newTestController(gw, notifier, nil)
	ctrl.Load(context.Background())

	assert.Equal(t, 1, notifier.toastCount(ToastError))
	assert.False(t, ctrl.Loading())
}

func TestUploadSurvivesPipelineFailure(t *testing.T) {
	uploaded := testItem("fresh-upload")

	gw := newFakeGateway()
	gw.uploadFn = func(ctx context.Context, req UploadRequest) (*entity.Item, error) {
		return &uploaded, nil
	}
	gw.analyzeFn = func(ctx context.Context, id uuid.UUID) (*entity.Item, error) {
		return nil, errors.New("analysis backend down")
	}

	ctrl := newTestController(gw, nil, nil)
	item, err := ctrl.Upload(context.Background(), UploadRequest{Title: "x"})

	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, PipelineError, ctrl.PipelineStatus())

	selected := ctrl.SelectedItem()
	require.NotNil(t, selected)
	assert.Equal(t, uploaded.Id, selected.Id)
}

func TestUploadPipelineRunsToDone(t *testing.T) {
	gw := newFakeGateway()
	ctrl := newTestController(gw, nil, nil)

	_, err := ctrl.Upload(context.Background(), UploadRequest{Title: "x"})

	require.NoError(t, err)
	assert.Equal(t, PipelineDone, ctrl.PipelineStatus())
	assert.Equal(t, 1, gw.callCount("analyze"))
	assert.Equal(t, 1, gw.callCount("briefing"))
}

func TestUploadPipelineStagesConfigurable(t *testing.T) {
	gw := newFakeGateway()
	ctrl := newTestController(gw, nil, nil, WithPipelineStages(StageAnalyze))

	_, err := ctrl.Upload(context.Background(), UploadRequest{Title: "x"})

	require.NoError(t, err)
	assert.Equal(t, PipelineDone, ctrl.PipelineStatus())
	assert.Equal(t, 1, gw.callCount("analyze"))
	assert.Equal(t, 0, gw.callCount("briefing"))
}

func TestStageNoopsWithoutTarget(t *testing.T) {
	gw := newFakeGateway()
	ctrl := newTestController(gw, nil, nil)

	require.NoError(t, ctrl.Analyze(context.Background(), nil))
	assert.Equal(t, 0, gw.callCount("analyze"))
}

func TestStageFallsBackToSelection(t *testing.T) {
	item := testItem("selected")

	gw := newFakeGateway()
	var gotId uuid.UUID
	gw.analyzeFn = func(ctx context.Context, id uuid.UUID) (*entity.Item, error) {
		gotId = id
		result := item
		return &result, nil
	}

	ctrl := newTestController(gw, nil, nil)
	ctrl.cache.SetAll([]entity.Item{item})
	id := item.Id
	ctrl.SelectItem(&id)

	require.NoError(t, ctrl.Analyze(context.Background(), nil))
	assert.Equal(t, item.Id, gotId)
}

func TestStageFailureClearsBusyAndReraises(t *testing.T) {
	gw := newFakeGateway()
	gw.embedFn = func(ctx context.Context, id uuid.UUID) (*entity.Item, error) {
		return nil, errors.New("embedder offline")
	}

	notifier := newRecordingNotifier()
	ctrl := newTestController(gw, notifier, nil)
	id := uuid.New()

	err := ctrl.Embed(context.Background(), &id)

	require.Error(t, err)
	assert.False(t, ctrl.StageBusy(StageEmbed))
	assert.Equal(t, 1, notifier.toastCount(ToastError))
}

func conflictingBriefingGateway(existing string, replacement string) (*fakeGateway, *entity.Item) {
	item := testItem("conflicted")
	item.Briefing = existing

	gw := newFakeGateway()
	gw.briefingFn = func(ctx context.Context, id uuid.UUID, force bool) (*entity.Item, error) {
		if !force {
			return nil, apperr.ErrBriefingExists
		}
		updated := item
		updated.Briefing = replacement
		return &updated, nil
	}
	return gw, &item
}

func TestBriefingConflictDeclined(t *testing.T) {
	gw, item := conflictingBriefingGateway("the original briefing", "overwritten")

	ctrl := newTestController(gw, nil, AutoConfirmer{Decision: false})
	ctrl.cache.SetAll([]entity.Item{*item})
	id := item.Id

	err := ctrl.GenerateBriefing(context.Background(), &id)

	require.NoError(t, err)
	assert.Equal(t, 1, gw.callCount("briefing"))
	assert.False(t, ctrl.StageBusy(StageBriefing))

	cached := ctrl.cache.Find(id)
	require.NotNil(t, cached)
	assert.Equal(t, "the original briefing", cached.Briefing)
}

func TestBriefingConflictConfirmed(t *testing.T) {
	gw, item := conflictingBriefingGateway("the original briefing", "overwritten")

	ctrl := newTestController(gw, nil, AutoConfirmer{Decision: true})
	ctrl.cache.SetAll([]entity.Item{*item})
	id := item.Id

	err := ctrl.GenerateBriefing(context.Background(), &id)

	require.NoError(t, err)
	assert.Equal(t, 2, gw.callCount("briefing"))
	assert.False(t, ctrl.StageBusy(StageBriefing))

	cached := ctrl.cache.Find(id)
	require.NotNil(t, cached)
	assert.Equal(t, "overwritten", cached.Briefing)
}

func TestSearchQueryModeWhitespaceRejected(t *testing.T) {
	gw := newFakeGateway()
	notifier := newRecordingNotifier()
	ctrl := newTestController(gw, notifier, nil)

	ctrl.Search(context.Background(), "  ", SearchModeQuery)

	assert.Equal(t, 0, gw.callCount("search"))
	assert.Equal(t, 1, notifier.toastCount(ToastError))
	assert.False(t, ctrl.Loading())
	assert.False(t, ctrl.Searching())
}

func TestSearchSimilarModeWithoutSelection(t *testing.T) {
	gw := newFakeGateway()
	notifier := newRecordingNotifier()
	ctrl := newTestController(gw, notifier, nil)

	ctrl.Search(context.Background(), "", SearchModeSimilar)

	assert.Equal(t, 0, gw.callCount("search"))
	assert.Equal(t, 1, notifier.toastCount(ToastError))
}

func TestSearchSimilarModeEmptyItemRejected(t *testing.T) {
	empty := entity.Item{Id: uuid.New()}

	gw := newFakeGateway()
	notifier := newRecordingNotifier()
	ctrl := newTestController(gw, notifier, nil)
	ctrl.cache.SetAll([]entity.Item{empty})
	id := empty.Id
	ctrl.SelectItem(&id)

	ctrl.Search(context.Background(), "", SearchModeSimilar)

	assert.Equal(t, 0, gw.callCount("search"))
	assert.Equal(t, 1, notifier.toastCount(ToastError))
}

func TestSearchSimilarModeUsesSynthesizedQuery(t *testing.T) {
	item := entity.Item{
		Id:    uuid.New(),
		Title: "Neon gradient hero",
		Notes: "strong glow",
		Tags:  []string{"neon", "dark"},
	}

	gw := newFakeGateway()
	var gotQuery string
	gw.searchFn = func(ctx context.Context, req SearchRequest) ([]entity.Item, error) {
		gotQuery = req.Query
		return nil, nil
	}

	ctrl := newTestController(gw, nil, nil)
	ctrl.cache.SetAll([]entity.Item{item})
	id := item.Id
	ctrl.SelectItem(&id)

	ctrl.Search(context.Background(), "ignored", SearchModeSimilar)

	assert.Equal(t, "Neon gradient hero. strong glow. neon, dark", gotQuery)
}

func TestSearchAppliesFixedLimitThresholdAndSpace(t *testing.T) {
	gw := newFakeGateway()
	var got SearchRequest
	gw.searchFn = func(ctx context.Context, req SearchRequest) ([]entity.Item, error) {
		got = req
		return nil, nil
	}

	ctrl := newTestController(gw, nil, nil)
	require.NoError(t, ctrl.SetSearchSpace(entity.SpaceBriefing))

	ctrl.Search(context.Background(), "glow", SearchModeQuery)

	assert.Equal(t, 20, got.Limit)
	assert.InDelta(t, 0.3, got.Threshold, 1e-9)
	assert.Equal(t, entity.SpaceBriefing, got.Space)
}

func TestSearchReplacesVisibleList(t *testing.T) {
	hit := testItem("hit")
	hit.Score = 0.91

	gw := newFakeGateway()
	gw.searchFn = func(ctx context.Context, req SearchRequest) ([]entity.Item, error) {
		return []entity.Item{hit}, nil
	}

	notifier := newRecordingNotifier()
	ctrl := newTestController(gw, notifier, nil)
	ctrl.cache.ReplaceVisible([]entity.Item{testItem("old")})

	ctrl.Search(context.Background(), "glow", SearchModeQuery)

	visible := ctrl.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, hit.Id, visible[0].Id)
	assert.Equal(t, 1, notifier.toastCount(ToastSuccess))
	assert.False(t, ctrl.Searching())
	assert.False(t, ctrl.Loading())
}

func TestSearchFailureFallsBackToLoad(t *testing.T) {
	fallback := testItem("fallback")

	gw := newFakeGateway()
	gw.searchFn = func(ctx context.Context, req SearchRequest) ([]entity.Item, error) {
		return nil, errors.New("search backend down")
	}
	gw.listFn = func(ctx context.Context, scope ListScope) (*ListResult, error) {
		return &ListResult{Items: []entity.Item{fallback}}, nil
	}

	notifier := newRecordingNotifier()
	ctrl := newTestController(gw, notifier, nil)

	ctrl.Search(context.Background(), "glow", SearchModeQuery)

	assert.Equal(t, 1, gw.callCount("list"))
	visible := ctrl.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, fallback.Id, visible[0].Id)
	assert.Equal(t, 1, notifier.toastCount(ToastError))
}

func TestSearchSupersededResultDiscarded(t *testing.T) {
	first := testItem("stale-hit")
	second := testItem("fresh-hit")

	gates := map[string]chan struct{}{
		"one": make(chan struct{}),
		"two": make(chan struct{}),
	}
	started := make(chan string, 2)

	gw := newFakeGateway()
	gw.searchFn = func(ctx context.Context, req SearchRequest) ([]entity.Item, error) {
		started <- req.Query
		<-gates[req.Query]
		if req.Query == "one" {
			return []entity.Item{first}, nil
		}
		return []entity.Item{second}, nil
	}

	ctrl := newTestController(gw, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ctrl.Search(ctx, "one", SearchModeQuery)
	}()
	require.Equal(t, "one", <-started)

	go func() {
		defer wg.Done()
		ctrl.Search(ctx, "two", SearchModeQuery)
	}()
	require.Equal(t, "two", <-started)

	close(gates["two"])
	time.Sleep(20 * time.Millisecond)
	close(gates["one"])
	wg.Wait()

	visible := ctrl.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, second.Id, visible[0].Id)
	assert.False(t, ctrl.Searching())
	assert.False(t, ctrl.Loading())
}

func TestDeleteDeselectsAndRemoves(t *testing.T) {
	item := testItem("doomed")

	gw := newFakeGateway()
	ctrl := newTestController(gw, nil, nil)
	ctrl.cache.SetAll([]entity.Item{item})
	ctrl.cache.ReplaceVisible([]entity.Item{item})
	id := item.Id
	ctrl.SelectItem(&id)

	require.NoError(t, ctrl.Delete(context.Background(), id))

	assert.Empty(t, ctrl.Visible())
	assert.Empty(t, ctrl.AllItems())
	assert.Nil(t, ctrl.SelectedItem())
}

func TestSetSearchSpaceRejectsUnknown(t *testing.T) {
	ctrl := newTestController(newFakeGateway(), nil, nil)

	err := ctrl.SetSearchSpace(entity.SearchSpace("hybrid"))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, entity.SpaceFull, ctrl.SearchSpace())
}

func TestSynthesizeQueryPrefersBriefing(t *testing.T) {
	item := &entity.Item{
		Title:    "Title here",
		Notes:    "notes here",
		Tags:     []string{"a", "b"},
		Briefing: "the briefing wins",
		Analysis: &entity.ItemAnalysis{TransferNotes: "transfer"},
	}

	assert.Equal(t, "the briefing wins", synthesizeQuery(item))
}

func TestSynthesizeQueryIncludesTransferNotes(t *testing.T) {
	item := &entity.Item{
		Title:    "Glass card",
		Analysis: &entity.ItemAnalysis{TransferNotes: "use soft shadows"},
	}

	assert.Equal(t, "Glass card. use soft shadows", synthesizeQuery(item))
}

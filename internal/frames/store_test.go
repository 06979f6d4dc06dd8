package frames_test

import (
	"context"
	"sync"
	"testing"

	"desyn-backend/internal/apperrors"
	"desyn-backend/internal/docstore"
	"desyn-backend/internal/frames"
	"desyn-backend/internal/models"
	"desyn-backend/internal/project"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db        *docstore.Memory
	projects  *project.Store
	frames    *frames.Store
	projectID string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := docstore.NewMemory()
	projects := project.NewStore(db)
	id, err := projects.Create(context.Background(), "owner", "Demo", 24, 64, 36)
	require.NoError(t, err)
	return &fixture{db: db, projects: projects, frames: frames.NewStore(db), projectID: id}
}

func ptr(s string) *string { return &s }

func numbers(fs []models.Frame) []int {
	out := make([]int, len(fs))
	for i, f := range fs {
		out[i] = f.FrameNumber
	}
	return out
}

func (f *fixture) totalFrames(t *testing.T) int {
	p, err := f.projects.Get(context.Background(), f.projectID)
	require.NoError(t, err)
	return p.TotalFrames
}

func TestListAll_EmptyProject(t *testing.T) {
	f := setup(t)

	list, err := f.frames.ListAll(context.Background(), f.projectID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListAll_SortedAndSkipsMalformed(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	coll := project.FramesCollection(f.projectID)

	require.NoError(t, f.db.Set(ctx, coll, "b", map[string]interface{}{"frameNumber": 1}, false))
	require.NoError(t, f.db.Set(ctx, coll, "a", map[string]interface{}{"frameNumber": 0, "imageData": "data:x"}, false))
	require.NoError(t, f.db.Set(ctx, coll, "broken", map[string]interface{}{"frameNumber": "three"}, false))
	require.NoError(t, f.db.Set(ctx, coll, "bad-image", map[string]interface{}{"frameNumber": 2, "imageData": 42}, false))

	list, err := f.frames.ListAll(ctx, f.projectID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.True(t, list[1].IsBlank())
}

func TestAdd_AppendsAndCounts(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	first, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)
	second, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)

	assert.Equal(t, 0, first.FrameNumber)
	assert.Equal(t, 1, second.FrameNumber)
	assert.True(t, second.IsBlank())
	assert.Equal(t, 2, f.totalFrames(t))
}

func TestAdd_MissingProject(t *testing.T) {
	f := setup(t)

	_, err := f.frames.Add(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSave_SkipsUnchangedContent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	frame, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)

	frame.ImageData = ptr("data:image/png;base64,AAAA")
	before := f.db.Writes()

	_, written, err := f.frames.Save(ctx, f.projectID, *frame, nil)
	require.NoError(t, err)
	assert.True(t, written)

	_, written, err = f.frames.Save(ctx, f.projectID, *frame, nil)
	require.NoError(t, err)
	assert.False(t, written)

	assert.Equal(t, int64(1), f.db.Writes()-before)
}

func TestSave_MergePreservesLayers(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	frame, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)

	layers := frames.NewLayerStack(nil).Layers()
	_, err = f.frames.SaveLayers(ctx, f.projectID, frame.ID, layers)
	require.NoError(t, err)

	frame.ImageData = ptr("data:image/png;base64,BBBB")
	_, _, err = f.frames.Save(ctx, f.projectID, *frame, nil)
	require.NoError(t, err)

	stored, err := f.frames.Get(ctx, f.projectID, frame.ID)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,BBBB", *stored.ImageData)
	assert.Equal(t, layers, stored.Layers)
}

func TestSaveLayers_MissingFrame(t *testing.T) {
	f := setup(t)

	_, err := f.frames.SaveLayers(context.Background(), f.projectID, "missing", frames.NewLayerStack(nil).Layers())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSaveLayers_EmptyListRejected(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	frame, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)
	before := f.db.Writes()

	for i := 0; i < 2; i++ {
		written, err := f.frames.SaveLayers(ctx, f.projectID, frame.ID, []models.Layer{})
		assert.ErrorIs(t, err, apperrors.ErrLastLayer)
		assert.False(t, written)
	}
	assert.Equal(t, before, f.db.Writes())
}

func TestSaveLayers_SkipsUnchangedLayers(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	frame, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)
	layers := frames.NewLayerStack(nil).Layers()

	written, err := f.frames.SaveLayers(ctx, f.projectID, frame.ID, layers)
	require.NoError(t, err)
	assert.True(t, written)
	before := f.db.Writes()

	written, err = f.frames.SaveLayers(ctx, f.projectID, frame.ID, layers)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, before, f.db.Writes())
}

func TestSave_RasterOnlyKeepsFrameNumber(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	first, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)
	second, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)

	_, written, err := f.frames.Save(ctx, f.projectID, models.Frame{ID: second.ID, ImageData: ptr("data:image/png;base64,AAAA")}, nil)
	require.NoError(t, err)
	assert.True(t, written)

	list, err := f.frames.ListAll(ctx, f.projectID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, numbers(list))
	assert.Equal(t, []string{first.ID, second.ID}, []string{list[0].ID, list[1].ID})
	assert.Equal(t, "data:image/png;base64,AAAA", *list[1].ImageData)
}

func TestSave_UnknownFrameNotCreated(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for i := 0; i < 2; i++ {
		_, err := f.frames.Add(ctx, f.projectID)
		require.NoError(t, err)
	}
	before := f.db.Writes()

	ghost := models.Frame{ID: "ghost", FrameNumber: 1, ImageData: ptr("data:image/png;base64,AAAA")}
	_, _, err := f.frames.Save(ctx, f.projectID, ghost, &ghost.FrameNumber)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := f.frames.ListAll(ctx, f.projectID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, numbers(list))
	assert.Equal(t, 2, f.totalFrames(t))
	assert.Equal(t, before, f.db.Writes())
}

func TestSave_ExpectedFrameNumberMismatch(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)
	second, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)

	stale := 0
	_, _, err = f.frames.Save(ctx, f.projectID, models.Frame{ID: second.ID, ImageData: ptr("data:x")}, &stale)
	var validation *apperrors.ValidationError
	assert.ErrorAs(t, err, &validation)

	current := 1
	_, written, err := f.frames.Save(ctx, f.projectID, models.Frame{ID: second.ID, ImageData: ptr("data:x")}, &current)
	require.NoError(t, err)
	assert.True(t, written)
}

func TestSave_FreshStoreSkipsStoredContent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	frame, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)
	frame.ImageData = ptr("data:image/png;base64,AAAA")
	_, _, err = f.frames.Save(ctx, f.projectID, *frame, nil)
	require.NoError(t, err)

	// A second instance over the same database sees the stored content.
	other := frames.NewStore(f.db)
	before := f.db.Writes()
	_, written, err := other.Save(ctx, f.projectID, *frame, nil)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, before, f.db.Writes())
}

func TestDelete_LastFrameRejected(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	only, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)

	err = f.frames.Delete(ctx, f.projectID, only.ID)
	assert.ErrorIs(t, err, apperrors.ErrLastFrame)

	list, err := f.frames.ListAll(ctx, f.projectID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, f.totalFrames(t))
}

func TestDelete_LeavesGapUntilRenumber(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for i := 0; i < 3; i++ {
		_, err := f.frames.Add(ctx, f.projectID)
		require.NoError(t, err)
	}
	list, err := f.frames.ListAll(ctx, f.projectID)
	require.NoError(t, err)

	require.NoError(t, f.frames.Delete(ctx, f.projectID, list[1].ID))
	list, err = f.frames.ListAll(ctx, f.projectID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, numbers(list))
	assert.Equal(t, 2, f.totalFrames(t))

	renumbered, err := f.frames.Renumber(ctx, f.projectID, list)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, numbers(renumbered))

	list, err = f.frames.ListAll(ctx, f.projectID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, numbers(list))
}

// gatedStore holds every frame listing until two callers have arrived, so both
// deletes decide on the same snapshot before either commits.
type gatedStore struct {
	*docstore.Memory
	mu      sync.Mutex
	arrived int
	release chan struct{}
}

func (g *gatedStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	docs, err := g.Memory.Query(ctx, collection, q)
	g.mu.Lock()
	g.arrived++
	if g.arrived == 2 {
		close(g.release)
	}
	g.mu.Unlock()
	<-g.release
	return docs, err
}

func TestDelete_ConcurrentDeletesKeepOneFrame(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	var ids []string
	for i := 0; i < 2; i++ {
		fr, err := f.frames.Add(ctx, f.projectID)
		require.NoError(t, err)
		ids = append(ids, fr.ID)
	}

	gated := frames.NewStore(&gatedStore{Memory: f.db, release: make(chan struct{})})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = gated.Delete(ctx, f.projectID, id)
		}(i, id)
	}
	wg.Wait()

	var failed int
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, apperrors.ErrLastFrame)
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	list, err := f.frames.ListAll(ctx, f.projectID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, f.totalFrames(t))
}

func TestDelete_UnknownFrame(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.frames.Delete(ctx, f.projectID, "missing"), apperrors.ErrNotFound)
}

func TestDuplicate_InsertsAfterSource(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	first, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)
	last, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)

	first.ImageData = ptr("data:image/png;base64,CCCC")
	_, _, err = f.frames.Save(ctx, f.projectID, *first, nil)
	require.NoError(t, err)

	dup, err := f.frames.Duplicate(ctx, f.projectID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, dup.FrameNumber)
	assert.Equal(t, "data:image/png;base64,CCCC", *dup.ImageData)

	list, err := f.frames.ListAll(ctx, f.projectID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, numbers(list))
	assert.Equal(t, []string{first.ID, dup.ID, last.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, 3, f.totalFrames(t))
}

func TestDuplicate_UnknownSource(t *testing.T) {
	f := setup(t)

	_, err := f.frames.Duplicate(context.Background(), f.projectID, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReorderBatch(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	var ids []string
	for i := 0; i < 3; i++ {
		fr, err := f.frames.Add(ctx, f.projectID)
		require.NoError(t, err)
		ids = append(ids, fr.ID)
	}

	err := f.frames.ReorderBatch(ctx, f.projectID, []models.FrameOrder{
		{FrameID: ids[0], FrameNumber: 2},
		{FrameID: ids[2], FrameNumber: 0},
	})
	require.NoError(t, err)

	list, err := f.frames.ListAll(ctx, f.projectID)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestReorderBatch_RejectsCollisions(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	var ids []string
	for i := 0; i < 2; i++ {
		fr, err := f.frames.Add(ctx, f.projectID)
		require.NoError(t, err)
		ids = append(ids, fr.ID)
	}

	var validation *apperrors.ValidationError
	err := f.frames.ReorderBatch(ctx, f.projectID, []models.FrameOrder{{FrameID: ids[0], FrameNumber: 1}})
	assert.ErrorAs(t, err, &validation)

	err = f.frames.ReorderBatch(ctx, f.projectID, []models.FrameOrder{{FrameID: ids[0], FrameNumber: -1}})
	assert.ErrorAs(t, err, &validation)

	err = f.frames.ReorderBatch(ctx, f.projectID, []models.FrameOrder{{FrameID: "missing", FrameNumber: 5}})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := f.frames.ListAll(ctx, f.projectID)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0], ids[1]}, []string{list[0].ID, list[1].ID})
}

func TestInsert_ShiftsFollowingFrames(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	first, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)
	second, err := f.frames.Add(ctx, f.projectID)
	require.NoError(t, err)

	inserted, err := f.frames.Insert(ctx, f.projectID, 1, ptr("data:image/png;base64,AAAA"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted.FrameNumber)

	list, err := f.frames.ListAll(ctx, f.projectID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, numbers(list))
	assert.Equal(t, []string{first.ID, inserted.ID, second.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, 3, f.totalFrames(t))

	_, err = f.frames.Insert(ctx, f.projectID, -1, nil, nil)
	var validation *apperrors.ValidationError
	assert.ErrorAs(t, err, &validation)
}

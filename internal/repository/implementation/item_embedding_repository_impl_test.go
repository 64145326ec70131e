package implementation

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"

	"design-sandbox-be/internal/entity"
	"design-sandbox-be/internal/model"
	"design-sandbox-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

// The ON CONFLICT target of Upsert is only valid when the table carries a
// unique index over exactly those columns. AutoMigrate builds indexes from the
// model tags, so this pins the tags to the upsert without needing a database.
func TestUpsertConflictTargetHasUniqueIndex(t *testing.T) {
	s, err := schema.Parse(&model.ItemEmbedding{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	var target *schema.Index
	for _, idx := range s.ParseIndexes() {
		if idx.Name == "idx_item_space" {
			target = idx
			break
		}
	}
	require.NotNil(t, target, "model.ItemEmbedding must declare idx_item_space")

	assert.Equal(t, "UNIQUE", target.Class, "upsert conflict target must be a unique index")

	indexed := make([]string, 0, len(target.Fields))
	for _, f := range target.Fields {
		indexed = append(indexed, f.DBName)
	}
	conflict := make([]string, 0, len(upsertConflictColumns))
	for _, c := range upsertConflictColumns {
		conflict = append(conflict, c.Name)
	}
	assert.ElementsMatch(t, conflict, indexed, "unique index columns must match the ON CONFLICT target")
}

// Soft-deleted embedding rows would collide with the unique (item_id, space)
// key on the next upsert, so the model must not carry a DeletedAt column.
func TestItemEmbeddingHardDeletes(t *testing.T) {
	s, err := schema.Parse(&model.ItemEmbedding{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	assert.Nil(t, s.LookUpField("DeletedAt"))
}

func TestItemEmbeddingRepositoryIntegration(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err, "Failed to connect to DB")

	require.NoError(t, database.EnsureVectorExtension(gormDB))
	require.NoError(t, gormDB.AutoMigrate(&model.Item{}, &model.ItemEmbedding{}))

	ctx := context.Background()
	repo := NewItemEmbeddingRepository(gormDB)

	item := &model.Item{
		Id:           uuid.New(),
		CategoryId:   "integration",
		ComponentKey: "panel",
		Title:        "Upsert contract check",
	}
	require.NoError(t, gormDB.WithContext(ctx).Create(item).Error)
	t.Cleanup(func() {
		gormDB.Unscoped().Where("item_id = ?", item.Id).Delete(&model.ItemEmbedding{})
		gormDB.Unscoped().Delete(&model.Item{}, "id = ?", item.Id)
	})

	vector := make([]float32, 768)
	vector[0] = 1

	t.Run("Upsert replaces in place", func(t *testing.T) {
		first := &entity.ItemEmbedding{ItemId: item.Id, Space: entity.SpaceFull, Document: "v1", Embedding: vector}
		require.NoError(t, repo.Upsert(ctx, first))

		second := &entity.ItemEmbedding{ItemId: item.Id, Space: entity.SpaceFull, Document: "v2", Embedding: vector}
		require.NoError(t, repo.Upsert(ctx, second))

		var rows []model.ItemEmbedding
		require.NoError(t, gormDB.Where("item_id = ? AND space = ?", item.Id, "full").Find(&rows).Error)
		require.Len(t, rows, 1, "second upsert must update the existing row, not add one")
		assert.Equal(t, "v2", rows[0].Document)
	})

	t.Run("Spaces are independent rows", func(t *testing.T) {
		briefing := &entity.ItemEmbedding{ItemId: item.Id, Space: entity.SpaceBriefing, Document: "brief", Embedding: vector}
		require.NoError(t, repo.Upsert(ctx, briefing))

		var count int64
		require.NoError(t, gormDB.Model(&model.ItemEmbedding{}).Where("item_id = ?", item.Id).Count(&count).Error)
		assert.EqualValues(t, 2, count)
	})

	t.Run("SearchSimilar scores the seeded row", func(t *testing.T) {
		scored, err := repo.SearchSimilar(ctx, vector, entity.SpaceFull, "integration", "", 5, 0.3)
		require.NoError(t, err)
		require.NotEmpty(t, scored)
		assert.Equal(t, item.Id, scored[0].ItemId)
		assert.InDelta(t, 1.0, scored[0].Similarity, 0.001)
	})

	t.Run("DeleteByItemId removes every space", func(t *testing.T) {
		require.NoError(t, repo.DeleteByItemId(ctx, item.Id))

		var count int64
		require.NoError(t, gormDB.Model(&model.ItemEmbedding{}).Where("item_id = ?", item.Id).Count(&count).Error)
		assert.EqualValues(t, 0, count)
	})
}

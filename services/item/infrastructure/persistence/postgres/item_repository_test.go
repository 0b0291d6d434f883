package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/inventorystorage/pkg/config"
	"github.com/ghuser/inventorystorage/pkg/database"
	"github.com/ghuser/inventorystorage/pkg/events"
	"github.com/ghuser/inventorystorage/pkg/logger"
	"github.com/ghuser/inventorystorage/pkg/migrator"
	itemdomain "github.com/ghuser/inventorystorage/services/item/domain"
	domainevents "github.com/ghuser/inventorystorage/services/item/domain/events"
	"github.com/ghuser/inventorystorage/services/item/domain/models"
	"github.com/ghuser/inventorystorage/services/item/domain/repositories"
)

func TestCondition(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

	tests := []struct {
		name     string
		c        repositories.Criterion
		wantSQL  string
		wantArgs []any
	}{
		{"id equal", repositories.ByID(id), "item_id = $1", []any{id}},
		{"barcode not equal", repositories.Criterion{Field: repositories.FieldBarcode, Op: repositories.OpNotEqual, Value: "565578437802"}, "barcode <> $1", []any{"565578437802"}},
		{"title equal", repositories.Criterion{Field: repositories.FieldTitle, Op: repositories.OpEqual, Value: "Nod"}, "title = $1", []any{"Nod"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := psql.Select("id").From(itemTable).Where(condition(tt.c)).ToSql()
			require.NoError(t, err)
			assert.Equal(t, "SELECT id FROM item WHERE "+tt.wantSQL, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestFind_RejectsInvalidCriterionBeforeQuery(t *testing.T) {
	// A nil database proves the criterion is checked before any query runs.
	repo := NewItemRepository(nil, nil)
	_, err := repo.Find(context.Background(), "diku", repositories.Criterion{Field: "hrid", Op: "=", Value: "x"})
	assert.True(t, errors.Is(err, itemdomain.ErrInvalidCriterion))
}

func TestNullUUID(t *testing.T) {
	assert.False(t, nullUUID(uuid.Nil).Valid)
	id := uuid.New()
	assert.Equal(t, uuid.NullUUID{UUID: id, Valid: true}, nullUUID(id))
}

// Integration tests, skipped unless DATABASE_URL is set.
func newIntegrationRepo(t *testing.T) *ItemRepository {
	t.Helper()
	return NewItemRepository(newIntegrationDB(t), nil)
}

func newIntegrationDB(t *testing.T) *database.Database {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration tests")
	}

	ctx := context.Background()
	db, err := database.NewPool(ctx, dsn, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, migrator.Up(ctx, db.DB(), os.DirFS("../../../../../migrations/item"), logger.Discard()))
	return db
}

func uniqueTenant() string {
	return "test_" + uuid.NewString()[:8]
}

func TestItemRepositoryIntegration(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()

	t.Run("save keeps requested id and find returns it", func(t *testing.T) {
		tenant := uniqueTenant()
		id := uuid.New()
		item := models.NewItem(id, uuid.New(), "Nod")
		item.Barcode = "565578437802"

		assigned, err := repo.Save(ctx, tenant, item)
		require.NoError(t, err)
		assert.Equal(t, id, assigned)

		found, err := repo.Find(ctx, tenant, repositories.ByID(id))
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "565578437802", found[0].Barcode)
		assert.Equal(t, uuid.Nil, found[0].MaterialTypeID)
	})

	t.Run("same id in two tenants gets a substitute key", func(t *testing.T) {
		a, b := uniqueTenant(), uniqueTenant()
		id := uuid.New()

		first, err := repo.Save(ctx, a, models.NewItem(id, uuid.New(), "Nod"))
		require.NoError(t, err)
		second, err := repo.Save(ctx, b, models.NewItem(id, uuid.New(), "Uprooted"))
		require.NoError(t, err)
		assert.Equal(t, id, first)
		assert.NotEqual(t, id, second)

		found, err := repo.Find(ctx, b, repositories.ByID(id))
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, second, found[0].ID)
	})

	t.Run("duplicate within tenant", func(t *testing.T) {
		tenant := uniqueTenant()
		id := uuid.New()
		_, err := repo.Save(ctx, tenant, models.NewItem(id, uuid.New(), "Nod"))
		require.NoError(t, err)

		_, err = repo.Save(ctx, tenant, models.NewItem(id, uuid.New(), "Nod"))
		assert.True(t, errors.Is(err, itemdomain.ErrItemAlreadyExists))
	})

	t.Run("update then delete", func(t *testing.T) {
		tenant := uniqueTenant()
		key, err := repo.Save(ctx, tenant, models.NewItem(uuid.Nil, uuid.New(), "Nod"))
		require.NoError(t, err)

		replacement := models.NewItem(key, uuid.New(), "Uprooted")
		replacement.MaterialTypeID = uuid.New()
		require.NoError(t, repo.Update(ctx, tenant, replacement))

		found, err := repo.Find(ctx, tenant, repositories.All())
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, models.Title("Uprooted"), found[0].Title)
		assert.Equal(t, replacement.MaterialTypeID, found[0].MaterialTypeID)

		require.NoError(t, repo.Delete(ctx, tenant, key))
		err = repo.Delete(ctx, tenant, key)
		assert.True(t, errors.Is(err, itemdomain.ErrItemNotFound))

		err = repo.Update(ctx, tenant, replacement)
		assert.True(t, errors.Is(err, itemdomain.ErrItemNotFound))
	})

	t.Run("delete all is tenant scoped", func(t *testing.T) {
		a, b := uniqueTenant(), uniqueTenant()
		for range 2 {
			_, err := repo.Save(ctx, a, models.NewItem(uuid.Nil, uuid.New(), "Nod"))
			require.NoError(t, err)
		}
		_, err := repo.Save(ctx, b, models.NewItem(uuid.Nil, uuid.New(), "Nod"))
		require.NoError(t, err)

		require.NoError(t, repo.DeleteAll(ctx, a))

		found, err := repo.Find(ctx, a, repositories.All())
		require.NoError(t, err)
		assert.Empty(t, found)
		found, err = repo.Find(ctx, b, repositories.All())
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})
}

func TestItemRepositoryIntegration_UpdatePublishesEvent(t *testing.T) {
	db := newIntegrationDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus, err := events.NewEventBus(db, &config.Config{ServiceName: "repo-test-" + uuid.NewString()[:8]}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	got := make(chan domainevents.ItemUpdatedEvent, 8)
	_, err = bus.Subscribe(ctx, domainevents.TopicItemUpdated, func(_ context.Context, d events.Delivery) error {
		var evt domainevents.ItemUpdatedEvent
		if err := d.Decode(&evt); err != nil {
			return err
		}
		got <- evt
		return nil
	})
	require.NoError(t, err)

	repo := NewItemRepository(db, bus)
	tenant := uniqueTenant()
	id := uuid.New()
	key, err := repo.Save(ctx, tenant, models.NewItem(id, uuid.New(), "Nod"))
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, tenant, models.NewItem(key, uuid.New(), "Uprooted")))

	timeout := time.After(10 * time.Second)
	for {
		select {
		case evt := <-got:
			if evt.Tenant != tenant {
				continue
			}
			assert.Equal(t, id, evt.ItemID)
			assert.Equal(t, key, evt.StorageID)
			return
		case <-timeout:
			t.Fatal("no item.updated event delivered")
		}
	}
}

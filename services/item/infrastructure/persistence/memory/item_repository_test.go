package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	itemdomain "github.com/ghuser/inventorystorage/services/item/domain"
	"github.com/ghuser/inventorystorage/services/item/domain/models"
	"github.com/ghuser/inventorystorage/services/item/domain/repositories"
)

func newItem(id uuid.UUID, title models.Title) *models.Item {
	return models.NewItem(id, uuid.New(), title)
}

func TestSave_KeepsRequestedID(t *testing.T) {
	repo := NewItemRepository()
	id := uuid.New()

	assigned, err := repo.Save(context.Background(), "diku", newItem(id, "Nod"))
	require.NoError(t, err)
	assert.Equal(t, id, assigned)
}

func TestSave_GeneratesIDWhenNil(t *testing.T) {
	repo := NewItemRepository()

	assigned, err := repo.Save(context.Background(), "diku", newItem(uuid.Nil, "Nod"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, assigned)

	found, err := repo.Find(context.Background(), "diku", repositories.ByID(assigned))
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestSave_DuplicateWithinTenant(t *testing.T) {
	repo := NewItemRepository()
	ctx := context.Background()
	id := uuid.New()

	_, err := repo.Save(ctx, "diku", newItem(id, "Nod"))
	require.NoError(t, err)

	_, err = repo.Save(ctx, "diku", newItem(id, "Uprooted"))
	assert.True(t, errors.Is(err, itemdomain.ErrItemAlreadyExists))
}

func TestSave_CollisionAcrossTenantsSubstitutesKey(t *testing.T) {
	repo := NewItemRepository()
	ctx := context.Background()
	id := uuid.New()

	first, err := repo.Save(ctx, "tenant_a", newItem(id, "Nod"))
	require.NoError(t, err)
	second, err := repo.Save(ctx, "tenant_b", newItem(id, "Uprooted"))
	require.NoError(t, err)

	assert.Equal(t, id, first)
	assert.NotEqual(t, id, second, "second tenant must be filed under a fresh key")

	found, err := repo.Find(ctx, "tenant_b", repositories.ByID(id))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, second, found[0].ID, "raw record carries the storage key")
	assert.Equal(t, models.Title("Uprooted"), found[0].Title)
}

func TestFind_TenantScopedAndOrdered(t *testing.T) {
	repo := NewItemRepository()
	ctx := context.Background()

	for _, title := range []models.Title{"first", "second", "third"} {
		_, err := repo.Save(ctx, "diku", newItem(uuid.Nil, title))
		require.NoError(t, err)
	}
	_, err := repo.Save(ctx, "other", newItem(uuid.Nil, "foreign"))
	require.NoError(t, err)

	found, err := repo.Find(ctx, "diku", repositories.All())
	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, models.Title("first"), found[0].Title)
	assert.Equal(t, models.Title("third"), found[2].Title)
}

func TestFind_ByFieldAndOperator(t *testing.T) {
	repo := NewItemRepository()
	ctx := context.Background()

	nod := newItem(uuid.Nil, "Nod")
	nod.Barcode = "565578437802"
	_, err := repo.Save(ctx, "diku", nod)
	require.NoError(t, err)
	_, err = repo.Save(ctx, "diku", newItem(uuid.Nil, "Uprooted"))
	require.NoError(t, err)

	found, err := repo.Find(ctx, "diku", repositories.Criterion{Field: repositories.FieldBarcode, Op: repositories.OpEqual, Value: "565578437802"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, models.Title("Nod"), found[0].Title)

	found, err = repo.Find(ctx, "diku", repositories.Criterion{Field: repositories.FieldTitle, Op: repositories.OpNotEqual, Value: "Nod"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, models.Title("Uprooted"), found[0].Title)
}

func TestFind_InvalidCriterion(t *testing.T) {
	repo := NewItemRepository()
	_, err := repo.Find(context.Background(), "diku", repositories.Criterion{Field: "hrid", Op: "=", Value: "x"})
	assert.True(t, errors.Is(err, itemdomain.ErrInvalidCriterion))
}

func TestFind_ReturnsCopies(t *testing.T) {
	repo := NewItemRepository()
	ctx := context.Background()
	id, err := repo.Save(ctx, "diku", newItem(uuid.Nil, "Nod"))
	require.NoError(t, err)

	found, err := repo.Find(ctx, "diku", repositories.ByID(id))
	require.NoError(t, err)
	found[0].Title = "mutated"

	again, err := repo.Find(ctx, "diku", repositories.ByID(id))
	require.NoError(t, err)
	assert.Equal(t, models.Title("Nod"), again[0].Title)
}

func TestUpdate(t *testing.T) {
	repo := NewItemRepository()
	ctx := context.Background()
	id, err := repo.Save(ctx, "diku", newItem(uuid.Nil, "Nod"))
	require.NoError(t, err)

	replacement := newItem(id, "Uprooted")
	replacement.Barcode = "565578437802"
	require.NoError(t, repo.Update(ctx, "diku", replacement))

	found, err := repo.Find(ctx, "diku", repositories.ByID(id))
	require.NoError(t, err)
	assert.Equal(t, models.Title("Uprooted"), found[0].Title)
	assert.Equal(t, "565578437802", found[0].Barcode)

	err = repo.Update(ctx, "other", replacement)
	assert.True(t, errors.Is(err, itemdomain.ErrItemNotFound), "update must be tenant scoped")
}

func TestDelete(t *testing.T) {
	repo := NewItemRepository()
	ctx := context.Background()
	id, err := repo.Save(ctx, "diku", newItem(uuid.Nil, "Nod"))
	require.NoError(t, err)

	err = repo.Delete(ctx, "other", id)
	assert.True(t, errors.Is(err, itemdomain.ErrItemNotFound), "delete must be tenant scoped")

	require.NoError(t, repo.Delete(ctx, "diku", id))
	assert.Equal(t, 0, repo.Len())

	err = repo.Delete(ctx, "diku", id)
	assert.True(t, errors.Is(err, itemdomain.ErrItemNotFound))
}

func TestDeleteAll_OnlyTouchesTenant(t *testing.T) {
	repo := NewItemRepository()
	ctx := context.Background()
	for range 3 {
		_, err := repo.Save(ctx, "diku", newItem(uuid.Nil, "Nod"))
		require.NoError(t, err)
	}
	_, err := repo.Save(ctx, "other", newItem(uuid.Nil, "Nod"))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteAll(ctx, "diku"))

	found, err := repo.Find(ctx, "diku", repositories.All())
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, 1, repo.Len())
}

func TestCancelledContext(t *testing.T) {
	repo := NewItemRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Save(ctx, "diku", newItem(uuid.Nil, "Nod"))
	assert.ErrorIs(t, err, context.Canceled)
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghuser/inventorystorage/pkg/database"
	"github.com/ghuser/inventorystorage/pkg/events"
	itemdomain "github.com/ghuser/inventorystorage/services/item/domain"
	domainevents "github.com/ghuser/inventorystorage/services/item/domain/events"
	"github.com/ghuser/inventorystorage/services/item/domain/models"
	"github.com/ghuser/inventorystorage/services/item/domain/repositories"
)

const (
	itemTable = "item"

	// uniqueViolation is the SQLSTATE for unique_violation.
	uniqueViolation = "23505"

	// maxKeyAttempts bounds how often Save draws a fresh storage key after a
	// collision before giving up.
	maxKeyAttempts = 5
)

var _ repositories.ItemRepository = (*ItemRepository)(nil)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// criterionColumns maps Criterion fields to item table columns.
var criterionColumns = map[string]string{
	repositories.FieldID:         "item_id",
	repositories.FieldInstanceID: "instance_id",
	repositories.FieldBarcode:    "barcode",
	repositories.FieldTitle:      "title",
}

var selectColumns = []string{
	"id", "instance_id", "title", "barcode", "status_name",
	"material_type_id", "location_name", "created_at", "updated_at",
}

// ItemRepository implements repositories.ItemRepository against PostgreSQL.
type ItemRepository struct {
	db  *database.Database
	bus *events.EventBus
}

// NewItemRepository returns an ItemRepository backed by the given connection pool
// and event bus. The bus is used to publish item events through the outbox in
// the same transaction as the write. A nil bus disables publishing.
func NewItemRepository(database *database.Database, bus *events.EventBus) *ItemRepository {
	return &ItemRepository{db: database, bus: bus}
}

// Save persists a new Item and publishes an ItemCreatedEvent within the same transaction.
// Returns ErrItemAlreadyExists when the tenant already holds the requested id.
func (r *ItemRepository) Save(ctx context.Context, tenant string, item *models.Item) (uuid.UUID, error) {
	requested := item.ID
	if requested == uuid.Nil {
		requested = uuid.New()
	}

	var assigned uuid.UUID
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		key := requested
		for attempt := 0; attempt < maxKeyAttempts; attempt++ {
			id, err := insertItem(ctx, tx, tenant, key, requested, item)
			if err == nil {
				assigned = id
				break
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			// Storage key taken by another row; file the record under a fresh one.
			key = uuid.New()
		}
		if assigned == uuid.Nil {
			return fmt.Errorf("insert item: no free storage key after %d attempts", maxKeyAttempts)
		}

		if r.bus == nil {
			return nil
		}
		evt := domainevents.ItemCreatedEvent{
			EventID:        uuid.New(),
			Version:        1,
			Tenant:         tenant,
			ItemID:         requested,
			StorageID:      assigned,
			InstanceID:     item.InstanceID,
			Title:          item.Title.String(),
			Barcode:        item.Barcode,
			Status:         item.Status,
			MaterialTypeID: item.MaterialTypeID,
			Location:       item.Location,
			OccurredAt:     item.CreatedAt,
		}
		if err := r.bus.PublishJSONTx(ctx, tx, domainevents.TopicItemCreated, evt.EventID.String(), tenant, evt); err != nil {
			return fmt.Errorf("publish item created: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return assigned, nil
}

// insertItem inserts one row under key. It returns sql.ErrNoRows when key is
// already taken and ErrItemAlreadyExists when the tenant already holds itemID.
func insertItem(ctx context.Context, tx *sql.Tx, tenant string, key, itemID uuid.UUID, item *models.Item) (uuid.UUID, error) {
	query, args, err := psql.Insert(itemTable).
		Columns("id", "tenant_id", "item_id", "instance_id", "title", "barcode",
			"status_name", "material_type_id", "location_name", "created_at", "updated_at").
		Values(key, tenant, itemID, item.InstanceID, item.Title.String(), item.Barcode,
			item.Status, nullUUID(item.MaterialTypeID), item.Location, item.CreatedAt, item.UpdatedAt).
		Suffix("ON CONFLICT (id) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("build insert: %w", err)
	}

	var id uuid.UUID
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, err
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return uuid.Nil, itemdomain.ErrItemAlreadyExists
		}
		return uuid.Nil, fmt.Errorf("insert item: %w", err)
	}
	return id, nil
}

// Find returns the tenant's raw records matching c, oldest first. Each record
// carries its storage key in ID.
func (r *ItemRepository) Find(ctx context.Context, tenant string, c repositories.Criterion) ([]*models.Item, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	b := psql.Select(selectColumns...).
		From(itemTable).
		Where(sq.Eq{"tenant_id": tenant}).
		OrderBy("created_at", "id")
	if !c.IsAll() {
		b = b.Where(condition(c))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Update replaces the mutable fields of the record stored under item.ID and
// publishes an ItemUpdatedEvent within the same transaction.
func (r *ItemRepository) Update(ctx context.Context, tenant string, item *models.Item) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		query, args, err := psql.Update(itemTable).
			Set("instance_id", item.InstanceID).
			Set("title", item.Title.String()).
			Set("barcode", item.Barcode).
			Set("status_name", item.Status).
			Set("material_type_id", nullUUID(item.MaterialTypeID)).
			Set("location_name", item.Location).
			Set("updated_at", now).
			Where(sq.Eq{"id": item.ID, "tenant_id": tenant}).
			Suffix("RETURNING item_id").
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}

		var itemID uuid.UUID
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&itemID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return itemdomain.ErrItemNotFound
			}
			return fmt.Errorf("update item: %w", err)
		}

		if r.bus == nil {
			return nil
		}
		evt := domainevents.ItemUpdatedEvent{
			EventID:    uuid.New(),
			Version:    1,
			Tenant:     tenant,
			ItemID:     itemID,
			StorageID:  item.ID,
			OccurredAt: now,
		}
		if err := r.bus.PublishJSONTx(ctx, tx, domainevents.TopicItemUpdated, evt.EventID.String(), tenant, evt); err != nil {
			return fmt.Errorf("publish item updated: %w", err)
		}
		return nil
	})
}

// Delete removes the record stored under storageID and publishes an
// ItemDeletedEvent within the same transaction.
func (r *ItemRepository) Delete(ctx context.Context, tenant string, storageID uuid.UUID) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query, args, err := psql.Delete(itemTable).
			Where(sq.Eq{"id": storageID, "tenant_id": tenant}).
			Suffix("RETURNING item_id").
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}

		var itemID uuid.UUID
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&itemID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return itemdomain.ErrItemNotFound
			}
			return fmt.Errorf("delete item: %w", err)
		}

		if r.bus == nil {
			return nil
		}
		evt := domainevents.ItemDeletedEvent{
			EventID:    uuid.New(),
			Version:    1,
			Tenant:     tenant,
			ItemID:     itemID,
			StorageID:  storageID,
			OccurredAt: time.Now().UTC(),
		}
		if err := r.bus.PublishJSONTx(ctx, tx, domainevents.TopicItemDeleted, evt.EventID.String(), tenant, evt); err != nil {
			return fmt.Errorf("publish item deleted: %w", err)
		}
		return nil
	})
}

// DeleteAll removes every record of the tenant and publishes an
// ItemsPurgedEvent within the same transaction.
func (r *ItemRepository) DeleteAll(ctx context.Context, tenant string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query, args, err := psql.Delete(itemTable).
			Where(sq.Eq{"tenant_id": tenant}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete all: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete items: %w", err)
		}

		if r.bus == nil {
			return nil
		}
		evt := domainevents.ItemsPurgedEvent{
			EventID:    uuid.New(),
			Version:    1,
			Tenant:     tenant,
			Removed:    removed,
			OccurredAt: time.Now().UTC(),
		}
		if err := r.bus.PublishJSONTx(ctx, tx, domainevents.TopicItemsPurged, evt.EventID.String(), tenant, evt); err != nil {
			return fmt.Errorf("publish items purged: %w", err)
		}
		return nil
	})
}

// condition translates a validated, non-empty Criterion into a WHERE clause.
func condition(c repositories.Criterion) sq.Sqlizer {
	column := criterionColumns[c.Field]
	var value any = c.Value
	if c.Field == repositories.FieldID || c.Field == repositories.FieldInstanceID {
		value = uuid.MustParse(c.Value)
	}
	if c.Op == repositories.OpNotEqual {
		return sq.NotEq{column: value}
	}
	return sq.Eq{column: value}
}

// scanItem maps the current row of a selectColumns query to a models.Item.
func scanItem(rows *sql.Rows) (*models.Item, error) {
	var (
		item           models.Item
		title          string
		materialTypeID uuid.NullUUID
	)
	if err := rows.Scan(
		&item.ID, &item.InstanceID, &title, &item.Barcode, &item.Status,
		&materialTypeID, &item.Location, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}
	item.Title = models.Title(title)
	if materialTypeID.Valid {
		item.MaterialTypeID = materialTypeID.UUID
	}
	return &item, nil
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

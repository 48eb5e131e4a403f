package catalog

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salestream/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Resolver maps lookup-entity names to their persisted ids with a per-run
// in-memory cache. A Resolver is scoped to one refresh run and must not be
// shared across runs; the cache is an optimization, never a source of truth.
type Resolver struct {
	genID *snowflake.Node

	regions        map[string]snowflake.ID
	categories     map[string]snowflake.ID
	paymentMethods map[string]snowflake.ID
}

func NewResolver(genID *snowflake.Node) *Resolver {
	return &Resolver{
		genID:          genID,
		regions:        make(map[string]snowflake.ID),
		categories:     make(map[string]snowflake.ID),
		paymentMethods: make(map[string]snowflake.ID),
	}
}

// Region resolves a region name to its id, inserting the row if absent.
func (r *Resolver) Region(ctx context.Context, tx *gorm.DB, name string) (snowflake.ID, error) {
	return r.resolve(ctx, tx, "regions", name, r.regions)
}

// Category resolves a category name to its id, inserting the row if absent.
func (r *Resolver) Category(ctx context.Context, tx *gorm.DB, name string) (snowflake.ID, error) {
	return r.resolve(ctx, tx, "categories", name, r.categories)
}

// PaymentMethod resolves a payment method name to its id, inserting the row if absent.
func (r *Resolver) PaymentMethod(ctx context.Context, tx *gorm.DB, name string) (snowflake.ID, error) {
	return r.resolve(ctx, tx, "payment_methods", name, r.paymentMethods)
}

// resolve performs an atomic insert-or-fetch. ON CONFLICT DO NOTHING keeps
// it safe to call repeatedly inside one transaction scope without ever
// duplicating a name; on a conflict miss the existing id is read back.
func (r *Resolver) resolve(ctx context.Context, tx *gorm.DB, table, name string, cache map[string]snowflake.ID) (snowflake.ID, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}

	id := r.genID.Generate()
	res := tx.WithContext(ctx).
		Table(table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(map[string]any{"id": id, "name": name})
	if res.Error != nil && !db.IsDuplicateKeyErr(res.Error) {
		return 0, fmt.Errorf("resolve %s %q: %w", table, name, res.Error)
	}

	// Not every dialect reports a suppressed conflict the same way; a
	// duplicate-key error and RowsAffected == 0 both mean the name exists.
	if res.Error != nil || res.RowsAffected == 0 {
		var existing struct{ ID snowflake.ID }
		err := tx.WithContext(ctx).
			Table(table).
			Select("id").
			Where("name = ?", name).
			Take(&existing).Error
		if err != nil {
			return 0, fmt.Errorf("resolve %s %q: %w", table, name, err)
		}
		id = existing.ID
	}

	cache[name] = id
	return id, nil
}

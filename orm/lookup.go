package orm

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Lookup-or-create resolvers. Every resolver inserts with ON CONFLICT DO
// NOTHING and then fetches, so two requests racing on the same name never
// fail on the uniqueness constraint and never create duplicates. Names are
// matched byte-for-byte.

func (db *DB) resolveMake(ctx context.Context, name string) (uint, error) {
	if name == "" {
		return 0, &ValidationError{Reason: "make name must not be empty"}
	}

	row := Make{Name: name}
	err := gorm.G[Make](db.dbGorm, clause.OnConflict{DoNothing: true}).
		Create(ctx, &row)
	if err != nil {
		return 0, wrapErrorWithDetails(err, "create make", "name="+name)
	}
	if row.ID != 0 {
		return row.ID, nil
	}

	existing, err := gorm.G[Make](db.dbGorm).Where(&Make{Name: name}).First(ctx)
	if err != nil {
		return 0, wrapErrorWithDetails(err, "fetch make", "name="+name)
	}

	return existing.ID, nil
}

func (db *DB) resolveModel(ctx context.Context, makeID uint, name string) (uint, error) {
	if name == "" {
		return 0, &ValidationError{Reason: "model name must not be empty"}
	}
	if makeID == 0 {
		return 0, &ValidationError{Reason: "model requires an owning make"}
	}

	row := Model{MakeID: makeID, Name: name}
	err := gorm.G[Model](db.dbGorm, clause.OnConflict{
		Columns:   []clause.Column{{Name: "make_id"}, {Name: "name"}},
		DoNothing: true,
	}).Create(ctx, &row)
	if err != nil {
		return 0, wrapErrorWithDetails(
			err,
			"create model",
			fmt.Sprintf("make_id=%d, name=%s", makeID, name),
		)
	}
	if row.ID != 0 {
		return row.ID, nil
	}

	existing, err := gorm.G[Model](db.dbGorm).
		Where(&Model{MakeID: makeID, Name: name}).
		First(ctx)
	if err != nil {
		return 0, wrapErrorWithDetails(
			err,
			"fetch model",
			fmt.Sprintf("make_id=%d, name=%s", makeID, name),
		)
	}

	return existing.ID, nil
}

func (db *DB) resolveTag(ctx context.Context, name string) (uint, error) {
	row := Tag{Name: name}
	err := gorm.G[Tag](db.dbGorm, clause.OnConflict{DoNothing: true}).
		Create(ctx, &row)
	if err != nil {
		return 0, wrapErrorWithDetails(err, "create tag", "name="+name)
	}
	if row.ID != 0 {
		return row.ID, nil
	}

	existing, err := gorm.G[Tag](db.dbGorm).Where(&Tag{Name: name}).First(ctx)
	if err != nil {
		return 0, wrapErrorWithDetails(err, "fetch tag", "name="+name)
	}

	return existing.ID, nil
}

func (db *DB) resolveFeature(ctx context.Context, name string) (uint, error) {
	row := Feature{Name: name}
	err := gorm.G[Feature](db.dbGorm, clause.OnConflict{DoNothing: true}).
		Create(ctx, &row)
	if err != nil {
		return 0, wrapErrorWithDetails(err, "create feature", "name="+name)
	}
	if row.ID != 0 {
		return row.ID, nil
	}

	existing, err := gorm.G[Feature](db.dbGorm).Where(&Feature{Name: name}).First(ctx)
	if err != nil {
		return 0, wrapErrorWithDetails(err, "fetch feature", "name="+name)
	}

	return existing.ID, nil
}

package services

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// link inserts a join row, ignoring one that already exists.
func link(ctx context.Context, tx *gorm.DB, row interface{}) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
}

// unlink deletes the join rows of model matching query.
func unlink(ctx context.Context, tx *gorm.DB, model interface{}, query string, args ...interface{}) error {
	return tx.WithContext(ctx).Where(query, args...).Delete(model).Error
}

// exists reports whether any row of model matches query.
func exists(ctx context.Context, tx *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var n int64
	err := tx.WithContext(ctx).Model(model).Where(query, args...).Limit(1).Count(&n).Error
	return n > 0, err
}

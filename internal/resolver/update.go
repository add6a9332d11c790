package resolver

import (
	"context"
	"fmt"

	"UsersAPI/internal/db"
	"UsersAPI/internal/filters"
	"UsersAPI/internal/logger"
	"UsersAPI/internal/model"
)

// Update assigns values to the rows of modelName matching where and returns
// the number of rows changed. Cached counts of the model are dropped after a
// successful write.
func Update(ctx context.Context, modelName string, values map[string]any, where filters.Where) (int64, error) {
	m, err := model.Get(modelName)
	if err != nil {
		return 0, fmt.Errorf("resolver: %w", err)
	}

	ub, err := m.BuildUpdateQuery(values, where)
	if err != nil {
		return 0, err
	}
	sqlStr, args, err := ub.ToSql()
	if err != nil {
		return 0, err
	}
	logQuery(filters.QueryOptions{}, "update", modelName, sqlStr, args)

	if db.Pool == nil {
		return 0, errNoPool
	}
	tag, err := db.Pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("resolver: update %s: %w", modelName, err)
	}

	if err := InvalidateCounts(ctx, modelName); err != nil {
		logger.Warn("count_cache_invalidate_failed", map[string]any{
			"model": modelName,
			"error": err.Error(),
		})
	}
	return tag.RowsAffected(), nil
}

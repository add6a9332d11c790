package resolver

import (
	"context"
	"errors"
	"fmt"

	"UsersAPI/internal/db"
	"UsersAPI/internal/filters"
	"UsersAPI/internal/logger"
	"UsersAPI/internal/model"
)

// ErrNotFound is returned by FindOne when no row matches.
var ErrNotFound = errors.New("record not found")

var errNoPool = errors.New("resolver: postgres pool is not initialized")

// Find runs a list query for modelName and folds joined rows into nested
// items. Included has_many relations become slices.
func Find(ctx context.Context, modelName string, opts filters.QueryOptions) ([]map[string]any, error) {
	m, err := model.Get(modelName)
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}

	sb, err := m.BuildSelectQuery(opts)
	if err != nil {
		return nil, err
	}
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	logQuery(opts, "find", modelName, sqlStr, args)

	if db.Pool == nil {
		return nil, errNoPool
	}
	rows, err := db.Pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("resolver: query %s: %w", modelName, err)
	}
	defer rows.Close()

	flat, err := model.ScanFlatRows(rows)
	if err != nil {
		return nil, fmt.Errorf("resolver: scan %s: %w", modelName, err)
	}
	items, err := m.FoldRows(flat, opts.Include)
	if err != nil {
		logger.Error("resolver_fold_error", map[string]any{
			"model": modelName,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("resolver: fold %s: %w", modelName, err)
	}
	return items, nil
}

// FindOne returns the first item of Find or ErrNotFound.
func FindOne(ctx context.Context, modelName string, opts filters.QueryOptions) (map[string]any, error) {
	items, err := Find(ctx, modelName, opts)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

// Count returns the number of primary rows matching opts. Results are served
// from the count cache when possible.
func Count(ctx context.Context, modelName string, opts filters.QueryOptions) (int, error) {
	m, err := model.Get(modelName)
	if err != nil {
		return 0, fmt.Errorf("resolver: %w", err)
	}

	key, err := countCacheKey(modelName, opts)
	if err != nil {
		return 0, fmt.Errorf("resolver: count cache key: %w", err)
	}
	if n, ok := lookupCount(ctx, key); ok {
		return n, nil
	}

	sb, err := m.BuildCountQuery(opts)
	if err != nil {
		return 0, err
	}
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return 0, err
	}
	logQuery(opts, "count", modelName, sqlStr, args)

	if db.Pool == nil {
		return 0, errNoPool
	}
	var n int64
	if err := db.Pool.QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("resolver: count %s: %w", modelName, err)
	}

	storeCount(ctx, key, int(n))
	return int(n), nil
}

func logQuery(opts filters.QueryOptions, op, modelName, sqlStr string, args []any) {
	if opts.Logging != nil {
		opts.Logging(sqlStr, args)
	}
	logger.Debug("sql", map[string]any{
		"op":    op,
		"model": modelName,
		"sql":   sqlStr,
		"args":  args,
	})
}

package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salestream/internal/runlog/domain"
	"github.com/smallbiznis/salestream/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, run *domain.RunLog) error {
	return db.WithContext(ctx).Create(run).Error
}

func (r *repo) Finalize(ctx context.Context, db *gorm.DB, run *domain.RunLog) error {
	return db.WithContext(ctx).
		Model(&domain.RunLog{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"status":         run.Status,
			"rows_processed": run.RowsProcessed,
			"error":          run.Error,
			"finished_at":    run.FinishedAt,
		}).Error
}

// List returns run history newest-first, paginated by start time.
func (r *repo) List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*domain.RunLog, *pagination.PageInfo, error) {
	limit := page.PageSize
	if limit <= 0 {
		limit = 10
	}

	stmt := db.WithContext(ctx).Model(&domain.RunLog{})
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, nil, err
		}
		startedAt, err := time.Parse(time.RFC3339Nano, cursor.StartedAt)
		if err != nil {
			return nil, nil, err
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, nil, err
		}
		stmt = stmt.Where(
			"started_at < ? OR (started_at = ? AND id < ?)",
			startedAt, startedAt, id,
		)
	}

	var runs []*domain.RunLog
	err := stmt.
		Order("started_at desc, id desc").
		Limit(limit + 1).
		Find(&runs).Error
	if err != nil {
		return nil, nil, err
	}

	info, runs := pagination.BuildCursorPageInfo(runs, limit, func(run *domain.RunLog) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        run.ID.String(),
			StartedAt: run.StartedAt.Format(time.RFC3339Nano),
		})
		return token
	})
	return runs, info, nil
}

package domain

import (
	"context"

	"github.com/smallbiznis/salestream/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, run *RunLog) error
	Finalize(ctx context.Context, db *gorm.DB, run *RunLog) error
	List(ctx context.Context, db *gorm.DB, page pagination.Pagination) ([]*RunLog, *pagination.PageInfo, error)
}

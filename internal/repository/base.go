package repository

import (
	"errors"

	"showcase/internal/database"
	"showcase/internal/models"

	"gorm.io/gorm"
)

// readDB routes catalog listings and counts to the read replica when one is
// configured. Reads that gate a write (GetByID before a guarded update,
// duplicate checks) use the primary handle directly.
func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// first runs q.First into a new T and maps a missing row to a NotFound
// AppError naming resource and key.
func first[T any](q *gorm.DB, resource string, key any, conds ...any) (*T, error) {
	var out T
	if err := q.First(&out, conds...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(resource, key)
		}
		return nil, models.NewInternalError(err)
	}
	return &out, nil
}

// paginate applies limit/offset, ignoring non-positive values.
func paginate(limit, offset int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit > 0 {
			db = db.Limit(limit)
		}
		if offset > 0 {
			db = db.Offset(offset)
		}
		return db
	}
}

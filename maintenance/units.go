package maintenance

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormUnit wraps a database task as a Unit. Each run gets a fresh session
// bound to the unit's context, so a timed-out run cannot leak state into
// the next cycle.
func GormUnit(name string, db *gorm.DB, timeout time.Duration, fn func(ctx context.Context, tx *gorm.DB) error) Unit {
	return Unit{
		Name:    name,
		Timeout: timeout,
		Run: func(ctx context.Context) error {
			tx := db.Session(&gorm.Session{NewDB: true}).WithContext(ctx)
			return fn(ctx, tx)
		},
	}
}

// PurgeUnit returns a Unit deleting rows of table whose column timestamp is
// older than retention. It is the building block for the routine cleanup
// queries run by each cycle.
func PurgeUnit(name string, db *gorm.DB, table, column string, retention, timeout time.Duration) Unit {
	return GormUnit(name, db, timeout, func(ctx context.Context, tx *gorm.DB) error {
		cutoff := time.Now().Add(-retention)
		res := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s < ?", table, column), cutoff)
		return res.Error
	})
}

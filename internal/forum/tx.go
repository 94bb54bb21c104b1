package forum

import (
	"context"

	"gorm.io/gorm"

	"github.com/baldboard/baldboard-backend/internal/platform/dbctx"
)

// inTx runs fn inside a database transaction. A nil db (in-memory test
// doubles) runs fn directly with no transaction handle.
func inTx(ctx context.Context, db *gorm.DB, fn func(dbc dbctx.Context) error) error {
	if db == nil {
		return fn(dbctx.Context{Ctx: ctx})
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

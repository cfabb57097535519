package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Services that receive a nil Tx open and own their own transaction; a
// non-nil Tx joins the caller's, so bulk operations compose multiple
// writes atomically.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func Background() Context {
	return Context{Ctx: context.Background()}
}

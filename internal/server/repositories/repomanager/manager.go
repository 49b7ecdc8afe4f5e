package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/shopkeeper/internal/dbx"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/revocations"
	"github.com/dmitrijs2005/shopkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a connection or transaction
// and owns the schema.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Revocations(db dbx.DBTX) revocations.Repository
}

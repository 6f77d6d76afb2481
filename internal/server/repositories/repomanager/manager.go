// Package repomanager vends the repositories of one storage backend.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophsend/internal/dbx"
	"github.com/dmitrijs2005/gophsend/internal/server/repositories/authcodes"
	"github.com/dmitrijs2005/gophsend/internal/server/repositories/filelists"
	"github.com/dmitrijs2005/gophsend/internal/server/repositories/files"
)

// RepositoryManager binds repositories to a DBTX. Backends without a
// database ignore the argument.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
	FileLists(db dbx.DBTX) filelists.Repository
	AuthCodes(db dbx.DBTX) authcodes.Repository
}

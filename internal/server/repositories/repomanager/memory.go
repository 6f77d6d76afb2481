package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophsend/internal/dbx"
	"github.com/dmitrijs2005/gophsend/internal/server/repositories/authcodes"
	"github.com/dmitrijs2005/gophsend/internal/server/repositories/filelists"
	"github.com/dmitrijs2005/gophsend/internal/server/repositories/files"
)

// MemoryRepositoryManager hands out one shared in-memory instance of each
// repository.
type MemoryRepositoryManager struct {
	files     *files.MemoryRepository
	fileLists *filelists.MemoryRepository
	authCodes *authcodes.MemoryRepository
}

func NewMemoryRepositoryManager() RepositoryManager {
	return &MemoryRepositoryManager{
		files:     files.NewMemoryRepository(),
		fileLists: filelists.NewMemoryRepository(),
		authCodes: authcodes.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *MemoryRepositoryManager) Files(dbx.DBTX) files.Repository {
	return m.files
}

func (m *MemoryRepositoryManager) FileLists(dbx.DBTX) filelists.Repository {
	return m.fileLists
}

func (m *MemoryRepositoryManager) AuthCodes(dbx.DBTX) authcodes.Repository {
	return m.authCodes
}

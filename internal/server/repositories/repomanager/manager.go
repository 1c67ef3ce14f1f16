package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/quickstash/internal/dbx"
	"github.com/dmitrijs2005/quickstash/internal/server/repositories/files"
	"github.com/dmitrijs2005/quickstash/internal/server/repositories/folders"
	"github.com/dmitrijs2005/quickstash/internal/server/repositories/invitations"
	"github.com/dmitrijs2005/quickstash/internal/server/repositories/items"
	"github.com/dmitrijs2005/quickstash/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Items(db dbx.DBTX) items.Repository
	Files(db dbx.DBTX) files.Repository
	Folders(db dbx.DBTX) folders.Repository
	Users(db dbx.DBTX) users.Repository
	Invitations(db dbx.DBTX) invitations.Repository
}

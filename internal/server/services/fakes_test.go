package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/quickstash/internal/common"
	"github.com/dmitrijs2005/quickstash/internal/dbx"
	"github.com/dmitrijs2005/quickstash/internal/logging"
	"github.com/dmitrijs2005/quickstash/internal/server/mail"
	"github.com/dmitrijs2005/quickstash/internal/server/models"
	filesrepo "github.com/dmitrijs2005/quickstash/internal/server/repositories/files"
	foldersrepo "github.com/dmitrijs2005/quickstash/internal/server/repositories/folders"
	invitationsrepo "github.com/dmitrijs2005/quickstash/internal/server/repositories/invitations"
	itemsrepo "github.com/dmitrijs2005/quickstash/internal/server/repositories/items"
	usersrepo "github.com/dmitrijs2005/quickstash/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func ownedKey(id, userID string) string            { return id + "|" + userID }
func locationKey(name, folderID, userID string) string { return name + "|" + folderID + "|" + userID }

func inviteeKey(fileID string, inviteeID *string) string {
	if inviteeID == nil {
		return fileID + "|<public>"
	}
	return fileID + "|" + *inviteeID
}

// --- fake repositories ---

type fakeItemsRepo struct {
	grabOut     *models.Item
	grabCreated bool
	grabErr     error
	grabCalls   int

	byID map[string]*models.Item

	deleteErr error
	deleted   []string
}

func (f *fakeItemsRepo) GrabOrCreate(ctx context.Context, item *models.Item) (*models.Item, bool, error) {
	f.grabCalls++
	if f.grabErr != nil {
		return nil, false, f.grabErr
	}
	if f.grabOut != nil {
		return f.grabOut, f.grabCreated, nil
	}
	item.ID = "item-new"
	return item, true, nil
}

func (f *fakeItemsRepo) GetByID(ctx context.Context, id string) (*models.Item, error) {
	if item, ok := f.byID[id]; ok {
		return item, nil
	}
	return nil, common.ErrItemNotFound
}

func (f *fakeItemsRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeFilesRepo struct {
	createErr error
	created   []*models.File

	byID  map[string]*models.File
	owned map[string]*models.File // keyed id|user
	at    map[string]*models.File // keyed name|folder|user

	updateErr error
	updated   []*models.File

	deleteErr error
	deleted   []string

	countByItem map[string]int64
	countErr    error
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	file.ID = fmt.Sprintf("file-new-%d", len(f.created)+1)
	f.created = append(f.created, file)
	return file, nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	if file, ok := f.byID[id]; ok {
		return file, nil
	}
	return nil, common.ErrFileNotFound
}

func (f *fakeFilesRepo) GetOwned(ctx context.Context, id, userID string) (*models.File, error) {
	if file, ok := f.owned[ownedKey(id, userID)]; ok {
		return file, nil
	}
	return nil, common.ErrFileNotFound
}

func (f *fakeFilesRepo) FindAt(ctx context.Context, name, folderID, userID string) (*models.File, error) {
	if file, ok := f.at[locationKey(name, folderID, userID)]; ok {
		return file, nil
	}
	return nil, common.ErrFileNotFound
}

func (f *fakeFilesRepo) Update(ctx context.Context, file *models.File) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, file)
	return nil
}

func (f *fakeFilesRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeFilesRepo) CountByItem(ctx context.Context, itemID string) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.countByItem[itemID], nil
}

type fakeFoldersRepo struct {
	owned map[string]*models.Folder // keyed id|user
}

func (f *fakeFoldersRepo) GetOwned(ctx context.Context, id, userID string) (*models.Folder, error) {
	if folder, ok := f.owned[ownedKey(id, userID)]; ok {
		return folder, nil
	}
	return nil, common.ErrFolderNotFound
}

type fakeUsersRepo struct {
	byID       map[string]*models.User
	byUsername map[string]*models.User
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := f.byID[id]; ok {
		return user, nil
	}
	return nil, common.ErrUserNotFound
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if user, ok := f.byUsername[username]; ok {
		return user, nil
	}
	return nil, common.ErrUserNotFound
}

type fakeInvitationsRepo struct {
	byKey map[string]*models.FileInvitation // keyed file|invitee

	createErr error
	created   []*models.FileInvitation

	updateErr error
	updated   []string

	deleteErr error
	deleted   []string

	expiredN   int64
	expiredErr error
	swept      chan struct{}
}

func (f *fakeInvitationsRepo) Create(ctx context.Context, inv *models.FileInvitation) (*models.FileInvitation, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	inv.ID = fmt.Sprintf("inv-new-%d", len(f.created)+1)
	f.created = append(f.created, inv)
	return inv, nil
}

func (f *fakeInvitationsRepo) FindByFileAndInvitee(ctx context.Context, fileID string, inviteeID *string) (*models.FileInvitation, error) {
	if inv, ok := f.byKey[inviteeKey(fileID, inviteeID)]; ok {
		return inv, nil
	}
	return nil, common.ErrInvitationNotFound
}

func (f *fakeInvitationsRepo) UpdateTerms(ctx context.Context, id string, privilege models.Privilege, expiresAt *time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, id)
	return nil
}

func (f *fakeInvitationsRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeInvitationsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if f.swept != nil {
		select {
		case f.swept <- struct{}{}:
		default:
		}
	}
	return f.expiredN, f.expiredErr
}

// --- fake repository manager ---

type fakeRepoManager struct {
	items       *fakeItemsRepo
	files       *fakeFilesRepo
	folders     *fakeFoldersRepo
	users       *fakeUsersRepo
	invitations *fakeInvitationsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		items:       &fakeItemsRepo{byID: map[string]*models.Item{}},
		files:       &fakeFilesRepo{byID: map[string]*models.File{}, owned: map[string]*models.File{}, at: map[string]*models.File{}, countByItem: map[string]int64{}},
		folders:     &fakeFoldersRepo{owned: map[string]*models.Folder{}},
		users:       &fakeUsersRepo{byID: map[string]*models.User{}, byUsername: map[string]*models.User{}},
		invitations: &fakeInvitationsRepo{byKey: map[string]*models.FileInvitation{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error            { return nil }
func (m *fakeRepoManager) Items(db dbx.DBTX) itemsrepo.Repository                  { return m.items }
func (m *fakeRepoManager) Files(db dbx.DBTX) filesrepo.Repository                  { return m.files }
func (m *fakeRepoManager) Folders(db dbx.DBTX) foldersrepo.Repository              { return m.folders }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                  { return m.users }
func (m *fakeRepoManager) Invitations(db dbx.DBTX) invitationsrepo.Repository      { return m.invitations }

// --- fake collaborators ---

type fakeBlobStore struct {
	mu      sync.Mutex
	deleted []string

	openErr   error
	openBody  string
	deleteErr error
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, r io.Reader) ([]byte, int64, error) {
	return nil, 0, nil
}

func (f *fakeBlobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(strings.NewReader(f.openBody)), nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobStore) PresignedGetURL(ctx context.Context, key string) (string, error) {
	return "https://example.com/" + key, nil
}

func (f *fakeBlobStore) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeMailer struct {
	err  error
	sent chan mail.Message
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(chan mail.Message, 1)}
}

func (m *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	m.sent <- msg
	return m.err
}

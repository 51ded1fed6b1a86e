package market

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"marketplace/db"
	"marketplace/db/migrations"
	"marketplace/internal/blob"
	"marketplace/internal/journal"
	"marketplace/models"
)

type fixture struct {
	svc     *Service
	store   *db.Storage
	blobs   *blob.Local
	journal *journal.Journal
}

// newFixture returns a service over a fresh in-memory sqlite database with
// the real migrations applied.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := db.Open("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	quiet := log.New(io.Discard, "", 0)
	require.NoError(t, migrations.Run(conn.DB, "sqlite3", quiet))

	dir := t.TempDir()
	blobs, err := blob.NewLocal(filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	j, err := journal.New(filepath.Join(dir, "pending.json"))
	require.NoError(t, err)

	store := db.NewStorage(conn)
	return &fixture{
		svc:     NewService(store, blobs, j, quiet),
		store:   store,
		blobs:   blobs,
		journal: j,
	}
}

func (f *fixture) user(t *testing.T, name string, role models.Role) Principal {
	t.Helper()
	u := &models.User{Username: name, PasswordHash: "x", Role: role}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return Principal{UserID: u.ID, Role: role}
}

func (f *fixture) project(t *testing.T, client Principal) *models.Project {
	t.Helper()
	p, err := f.svc.CreateProject(context.Background(), client, NewProject{
		Title:       "Logo design",
		Description: "A vector logo for a bakery",
		Budget:      500,
		Deadline:    "2030-01-31",
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) bid(t *testing.T, contractor Principal, projectID int64, price float64) *models.Bid {
	t.Helper()
	b, err := f.svc.SubmitBid(context.Background(), contractor, projectID, price)
	require.NoError(t, err)
	return b
}

// awarded builds a project whose single bid has been accepted.
func (f *fixture) awarded(t *testing.T) (Principal, Principal, *models.Project, *models.Bid) {
	t.Helper()
	client := f.user(t, "client", models.RoleClient)
	contractor := f.user(t, "contractor", models.RoleContractor)
	project := f.project(t, client)
	bid := f.bid(t, contractor, project.ID, 450)
	_, err := f.svc.AcceptBid(context.Background(), client, bid.ID)
	require.NoError(t, err)
	return client, contractor, project, bid
}

func (f *fixture) projectStatus(t *testing.T, id int64) models.ProjectStatus {
	t.Helper()
	p, err := f.store.GetProject(context.Background(), id)
	require.NoError(t, err)
	return p.Status
}

func (f *fixture) bidStatus(t *testing.T, id int64) models.BidStatus {
	t.Helper()
	b, err := f.store.GetBid(context.Background(), id)
	require.NoError(t, err)
	return b.Status
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), err.Error())
}

func journalEntry(projectID, bidID, uploaderID int64, path string) journal.Entry {
	return journal.Entry{
		ProjectID:        projectID,
		BidID:            bidID,
		UploaderID:       uploaderID,
		Filename:         filepath.Base(path),
		OriginalFilename: filepath.Base(path),
		StoragePath:      path,
		SizeBytes:        4,
		Source:           string(models.SourceUpload),
	}
}

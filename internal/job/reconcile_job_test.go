package job

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardtex/internal/db"
	"boardtex/internal/model"
	"boardtex/internal/repo"
	"boardtex/internal/store"
)

func TestReconcileJobRealignsIndex(t *testing.T) {
	dir := t.TempDir()
	conn, err := db.Open(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.ApplyMigrations(conn))
	documentRepo := repo.NewDocumentRepo(conn)
	notes, err := store.NewNoteStore(filepath.Join(dir, "notes"), documentRepo)
	require.NoError(t, err)
	ctx := context.Background()

	// on disk and indexed: stays
	require.NoError(t, notes.Save(ctx, &model.Document{Name: "kept", Status: model.DocumentStatusDraft, Source: "a", Ctime: 1}))
	// indexed but artifacts removed behind the store's back: row dropped
	require.NoError(t, notes.Save(ctx, &model.Document{Name: "orphan_row", Status: model.DocumentStatusDraft, Source: "b", Ctime: 2}))
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "notes", "orphan_row")))
	// on disk but never indexed: row added
	require.NoError(t, notes.Save(ctx, &model.Document{Name: "orphan_dir", Status: model.DocumentStatusDraft, Source: "c", Ctime: 3}))
	require.NoError(t, documentRepo.Delete(ctx, "orphan_dir"))

	require.NoError(t, NewReconcileJob(notes, documentRepo).Run(ctx))

	names, err := documentRepo.ListNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"kept", "orphan_dir"}, names)
}

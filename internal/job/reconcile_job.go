package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"boardtex/internal/repo"
	"boardtex/internal/store"
)

// ReconcileJob realigns the sqlite listing index with the note directory.
// The directory wins: rows without artifacts are dropped, directories
// without rows are re-indexed.
type ReconcileJob struct {
	notes *store.NoteStore
	repo  *repo.DocumentRepo
}

func NewReconcileJob(notes *store.NoteStore, documentRepo *repo.DocumentRepo) *ReconcileJob {
	return &ReconcileJob{notes: notes, repo: documentRepo}
}

func (j *ReconcileJob) Name() string {
	return "index_reconcile"
}

func (j *ReconcileJob) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	indexed, err := j.repo.ListNames(ctx)
	if err != nil {
		return err
	}
	onDisk, err := j.notes.DiskNames()
	if err != nil {
		return err
	}
	diskSet := make(map[string]struct{}, len(onDisk))
	for _, name := range onDisk {
		diskSet[name] = struct{}{}
	}
	indexSet := make(map[string]struct{}, len(indexed))
	for _, name := range indexed {
		indexSet[name] = struct{}{}
	}

	dropped, added := 0, 0
	for _, name := range indexed {
		if _, ok := diskSet[name]; ok {
			continue
		}
		if err := j.repo.Delete(ctx, name); err == nil {
			dropped++
		}
	}
	for _, name := range onDisk {
		if _, ok := indexSet[name]; ok {
			continue
		}
		doc, err := j.notes.Get(ctx, name)
		if err != nil {
			logger.Warn("unreadable document dir, skipping", zap.String("document", name), zap.Error(err))
			continue
		}
		if err := j.repo.Upsert(ctx, doc); err != nil {
			logger.Warn("re-index failed", zap.String("document", name), zap.Error(err))
			continue
		}
		added++
	}
	if dropped > 0 || added > 0 {
		logger.Info("index reconciled", zap.Int("dropped", dropped), zap.Int("added", added))
	}
	return nil
}

// Package store keeps document artifacts on disk, one directory per
// document name, with the sqlite index in repo tracking metadata for
// listing. The directory is the source of truth; the index follows it.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"boardtex/internal/filestore"
	"boardtex/internal/model"
	appErr "boardtex/internal/pkg/errors"
	"boardtex/internal/repo"
)

const (
	metaFile = "meta.json"
	texExt   = ".tex"
	pdfExt   = ".pdf"
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidName reports whether name is usable as a document key: it doubles as
// the path-traversal guard for everything that touches the filesystem.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

type noteMeta struct {
	Status        model.DocumentStatus `json:"status"`
	FragmentCount int                  `json:"fragment_count"`
	PhotoCount    int                  `json:"photo_count"`
	CompileDetail string               `json:"compile_detail,omitempty"`
	Ctime         int64                `json:"ctime"`
}

// NoteStore serializes writes per document name, so concurrent saves to the
// same name cannot interleave partially written artifacts.
type NoteStore struct {
	root    string
	repo    *repo.DocumentRepo
	archive filestore.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewNoteStore(root string, documentRepo *repo.DocumentRepo) (*NoteStore, error) {
	if root == "" {
		return nil, fmt.Errorf("note dir is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create note dir: %w", err)
	}
	return &NoteStore{
		root:  root,
		repo:  documentRepo,
		locks: map[string]*sync.Mutex{},
	}, nil
}

// AttachArchive makes deletions also drop the document's mirrored artifacts
// from the archive store.
func (s *NoteStore) AttachArchive(archive filestore.Store) {
	s.archive = archive
}

func (s *NoteStore) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *NoteStore) dirFor(name string) string {
	return filepath.Join(s.root, name)
}

// Save writes the document's artifacts and refreshes the index row. Saving
// under an existing name replaces the prior artifacts.
func (s *NoteStore) Save(ctx context.Context, doc *model.Document) error {
	if !nameRe.MatchString(doc.Name) {
		return fmt.Errorf("%w: bad document name %q", appErr.ErrInvalid, doc.Name)
	}
	l := s.lockFor(doc.Name)
	l.Lock()
	defer l.Unlock()

	dir := s.dirFor(doc.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create document dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, doc.Name+texExt), []byte(doc.Source), 0o644); err != nil {
		return fmt.Errorf("write tex: %w", err)
	}
	pdfPath := filepath.Join(dir, doc.Name+pdfExt)
	if doc.HasPDF() {
		if err := os.WriteFile(pdfPath, doc.PDF, 0o644); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
	} else if err := os.Remove(pdfPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("drop stale pdf: %w", err)
	}
	meta := noteMeta{
		Status:        doc.Status,
		FragmentCount: doc.FragmentCount,
		PhotoCount:    doc.PhotoCount,
		CompileDetail: doc.CompileDetail,
		Ctime:         doc.Ctime,
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), raw, 0o644); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return s.repo.Upsert(ctx, doc)
}

// Get loads the full document, artifact bytes included.
func (s *NoteStore) Get(ctx context.Context, name string) (*model.Document, error) {
	_ = ctx
	if !nameRe.MatchString(name) {
		return nil, appErr.ErrNotFound
	}
	dir := s.dirFor(name)
	rawMeta, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErr.ErrNotFound
		}
		return nil, fmt.Errorf("read meta: %w", err)
	}
	var meta noteMeta
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	source, err := os.ReadFile(filepath.Join(dir, name+texExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErr.ErrNotFound
		}
		return nil, fmt.Errorf("read tex: %w", err)
	}
	doc := &model.Document{
		Name:          name,
		Status:        meta.Status,
		Source:        string(source),
		FragmentCount: meta.FragmentCount,
		PhotoCount:    meta.PhotoCount,
		CompileDetail: meta.CompileDetail,
		Ctime:         meta.Ctime,
	}
	pdf, err := os.ReadFile(filepath.Join(dir, name+pdfExt))
	if err == nil {
		doc.PDF = pdf
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return doc, nil
}

// List returns summaries most recent first, straight from the index.
func (s *NoteStore) List(ctx context.Context, limit, offset uint) ([]model.DocumentSummary, error) {
	return s.repo.List(ctx, limit, offset)
}

// Delete removes artifacts and the index row. It verifies the directory is
// gone before reporting success.
func (s *NoteStore) Delete(ctx context.Context, name string) error {
	if !nameRe.MatchString(name) {
		return appErr.ErrNotFound
	}
	l := s.lockFor(name)
	l.Lock()
	defer l.Unlock()

	dir := s.dirFor(name)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return appErr.ErrNotFound
		}
		return fmt.Errorf("stat document dir: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove document dir: %w", err)
	}
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("document dir still present after delete")
	}
	if err := s.repo.Delete(ctx, name); err != nil && err != appErr.ErrNotFound {
		return err
	}
	s.dropArchived(ctx, name)
	return nil
}

// dropArchived removes the mirrored artifacts, best effort: the local copy is
// the source of truth and is already gone.
func (s *NoteStore) dropArchived(ctx context.Context, name string) {
	if s.archive == nil {
		return
	}
	for _, key := range []string{name + "/" + name + texExt, name + "/" + name + pdfExt} {
		if err := s.archive.Delete(ctx, key); err != nil {
			logutil.GetLogger(ctx).Warn("archive delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Exists reports whether artifacts are present on disk for name.
func (s *NoteStore) Exists(name string) bool {
	if !nameRe.MatchString(name) {
		return false
	}
	_, err := os.Stat(filepath.Join(s.dirFor(name), metaFile))
	return err == nil
}

// DiskNames lists the document directories currently on disk, used by the
// index reconcile job.
func (s *NoteStore) DiskNames() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || !nameRe.MatchString(e.Name()) {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), metaFile)); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

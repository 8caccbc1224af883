package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"boardtex/internal/filestore"
	"boardtex/internal/model"
	appErr "boardtex/internal/pkg/errors"
)

// IEnhancer normalizes one raw photo for recognition.
type IEnhancer interface {
	Enhance(raw []byte) ([]byte, error)
}

// IExtractor transcribes one enhanced photo; every outcome is a fragment.
type IExtractor interface {
	Extract(ctx context.Context, index int, enhanced []byte, mime string) *model.ExtractionFragment
}

// ICompiler builds a PDF from LaTeX source.
type ICompiler interface {
	Compile(ctx context.Context, name, source string) ([]byte, string, error)
}

// IDocumentStore persists the finished document.
type IDocumentStore interface {
	Save(ctx context.Context, doc *model.Document) error
}

// ConvertService is the batch orchestrator: it drives every photo of a
// capture session through enhancement and extraction with a bounded worker
// pool, reassembles fragments in capture order, compiles and persists.
type ConvertService struct {
	enhancer   IEnhancer
	extractor  IExtractor
	compiler   ICompiler
	store      IDocumentStore
	archive    filestore.Store
	maxWorkers int
	now        func() time.Time
}

func NewConvertService(enhancer IEnhancer, extractor IExtractor, compiler ICompiler, store IDocumentStore, archive filestore.Store, maxWorkers int) *ConvertService {
	if maxWorkers <= 0 {
		maxWorkers = 3
	}
	return &ConvertService{
		enhancer:   enhancer,
		extractor:  extractor,
		compiler:   compiler,
		store:      store,
		archive:    archive,
		maxWorkers: maxWorkers,
		now:        time.Now,
	}
}

// Convert processes one capture session end to end. A client disconnect
// does not abort in-flight extraction calls: the pipeline runs detached and
// the transport layer simply discards the result.
func (s *ConvertService) Convert(ctx context.Context, session *model.CaptureSession) (*model.ConvertResult, error) {
	if len(session.Photos) == 0 {
		return nil, fmt.Errorf("%w: empty capture session", appErr.ErrInvalid)
	}
	ctx = context.WithoutCancel(ctx)
	logger := logutil.GetLogger(ctx).With(zap.String("document", session.DocumentName), zap.Int("photos", len(session.Photos)))

	s.runPhotos(ctx, session.Photos)

	fragments := make([]*model.ExtractionFragment, 0, len(session.Photos))
	outcomes := make([]model.PhotoOutcome, 0, len(session.Photos))
	processed := 0
	for _, p := range session.Photos {
		fragments = append(fragments, p.Fragment)
		outcome := model.PhotoOutcome{Index: p.Index, Filename: p.Filename}
		if p.Status == model.PhotoStatusExtracted {
			outcome.OK = true
			processed++
		} else if p.Fragment != nil {
			outcome.Reason = p.Fragment.Reason
		} else if p.Err != nil {
			outcome.Reason = p.Err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	// completion order is irrelevant; assembly order is capture order
	sort.Slice(fragments, func(i, j int) bool {
		return fragments[i].Index < fragments[j].Index
	})

	if processed == 0 {
		logger.Error("all photos failed, no document produced")
		return nil, appErr.ErrAllPhotosFailed
	}
	logger.Info("photos processed", zap.Int("ok", processed))

	source, err := Assemble(session.DocumentName, fragments)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		Name:          session.DocumentName,
		Status:        model.DocumentStatusDraft,
		Source:        source,
		FragmentCount: processed,
		PhotoCount:    len(session.Photos),
		Ctime:         s.now().UnixMilli(),
	}
	pdf, detail, err := s.compiler.Compile(ctx, doc.Name, source)
	if err != nil {
		// non-fatal: the source artifact is still the product
		doc.Status = model.DocumentStatusCompileFailed
		doc.CompileDetail = detail
	} else {
		doc.Status = model.DocumentStatusCompiled
		doc.PDF = pdf
	}

	if err := s.store.Save(ctx, doc); err != nil {
		return nil, err
	}
	s.mirrorArtifacts(ctx, doc)

	return &model.ConvertResult{
		Document:  doc,
		Photos:    outcomes,
		Processed: processed,
		Total:     len(session.Photos),
	}, nil
}

// runPhotos fans the session out over a bounded worker pool. Results land
// on the assets themselves; indexes never move.
func (s *ConvertService) runPhotos(ctx context.Context, photos []*model.PhotoAsset) {
	sem := make(chan struct{}, s.maxWorkers)
	var wg sync.WaitGroup
	for _, photo := range photos {
		wg.Add(1)
		sem <- struct{}{}
		go func(p *model.PhotoAsset) {
			defer wg.Done()
			defer func() { <-sem }()
			s.runPhoto(ctx, p)
		}(photo)
	}
	wg.Wait()
}

func (s *ConvertService) runPhoto(ctx context.Context, p *model.PhotoAsset) {
	logger := logutil.GetLogger(ctx).With(zap.Int("photo_index", p.Index), zap.String("filename", p.Filename))
	enhanced, err := s.enhancer.Enhance(p.Raw)
	if err != nil {
		logger.Warn("enhancement failed", zap.Error(err))
		p.Status = model.PhotoStatusFailed
		p.Err = err
		p.Fragment = &model.ExtractionFragment{Index: p.Index, Failed: true, Reason: err.Error()}
		return
	}
	p.Enhanced = enhanced
	p.Status = model.PhotoStatusEnhanced

	p.Fragment = s.extractor.Extract(ctx, p.Index, enhanced, "image/png")
	if p.Fragment.Failed {
		p.Status = model.PhotoStatusFailed
		return
	}
	p.Status = model.PhotoStatusExtracted
}

// mirrorArtifacts pushes artifacts to the archive store, best effort.
func (s *ConvertService) mirrorArtifacts(ctx context.Context, doc *model.Document) {
	if s.archive == nil {
		return
	}
	logger := logutil.GetLogger(ctx).With(zap.String("document", doc.Name))
	if err := s.archive.Save(ctx, doc.Name+"/"+doc.Name+".tex", newByteReader([]byte(doc.Source)), int64(len(doc.Source))); err != nil {
		logger.Warn("archive mirror of tex failed", zap.Error(err))
	}
	if doc.HasPDF() {
		if err := s.archive.Save(ctx, doc.Name+"/"+doc.Name+".pdf", newByteReader(doc.PDF), int64(len(doc.PDF))); err != nil {
			logger.Warn("archive mirror of pdf failed", zap.Error(err))
		}
	}
}

// DefaultDocumentName builds the auto name for unnamed sessions.
func DefaultDocumentName(now time.Time, photoCount int) string {
	name := "notes_" + now.Format("2006-01-02_15-04-05")
	if photoCount > 1 {
		name = fmt.Sprintf("%s_multi%d", name, photoCount)
	}
	return name
}

type byteReader struct {
	*bytes.Reader
}

func newByteReader(b []byte) *byteReader {
	return &byteReader{Reader: bytes.NewReader(b)}
}

func (r *byteReader) Close() error { return nil }

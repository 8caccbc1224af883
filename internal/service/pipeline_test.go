package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardtex/internal/model"
	appErr "boardtex/internal/pkg/errors"
)

type fakeEnhancer struct {
	failOn map[string]error
}

func (f *fakeEnhancer) Enhance(raw []byte) ([]byte, error) {
	if err, ok := f.failOn[string(raw)]; ok {
		return nil, err
	}
	return append([]byte("enhanced:"), raw...), nil
}

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	// delay and outcome keyed by photo index
	delays map[int]time.Duration
	fails  map[int]string
}

func (f *fakeExtractor) Extract(ctx context.Context, index int, enhanced []byte, mime string) *model.ExtractionFragment {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if d, ok := f.delays[index]; ok {
		time.Sleep(d)
	}
	if reason, ok := f.fails[index]; ok {
		return &model.ExtractionFragment{Index: index, Failed: true, Reason: reason}
	}
	return &model.ExtractionFragment{Index: index, Text: fmt.Sprintf("fragment-%d \\(x_%d\\)", index, index)}
}

type fakeCompiler struct {
	pdf    []byte
	detail string
	err    error
}

func (f *fakeCompiler) Compile(ctx context.Context, name, source string) ([]byte, string, error) {
	return f.pdf, f.detail, f.err
}

type fakeStore struct {
	mu    sync.Mutex
	saved []*model.Document
}

func (f *fakeStore) Save(ctx context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, doc)
	return nil
}

func session(name string, count int) *model.CaptureSession {
	photos := make([]*model.PhotoAsset, 0, count)
	for i := 0; i < count; i++ {
		photos = append(photos, &model.PhotoAsset{
			Index:    i,
			Filename: fmt.Sprintf("p%d.jpg", i),
			Mime:     "image/jpeg",
			Raw:      []byte(fmt.Sprintf("raw-%d", i)),
			Status:   model.PhotoStatusPending,
		})
	}
	return &model.CaptureSession{DocumentName: name, Photos: photos}
}

func TestConvertPreservesCaptureOrderUnderParallelism(t *testing.T) {
	// the first photo finishes last; assembly must still lead with it
	extractor := &fakeExtractor{delays: map[int]time.Duration{
		0: 60 * time.Millisecond,
		1: 20 * time.Millisecond,
		2: 0,
	}}
	store := &fakeStore{}
	svc := NewConvertService(&fakeEnhancer{}, extractor, &fakeCompiler{pdf: []byte("pdf")}, store, nil, 3)

	res, err := svc.Convert(context.Background(), session("ordered", 3))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)

	source := res.Document.Source
	i0 := strings.Index(source, "fragment-0")
	i1 := strings.Index(source, "fragment-1")
	i2 := strings.Index(source, "fragment-2")
	require.True(t, i0 >= 0 && i1 >= 0 && i2 >= 0)
	assert.True(t, i0 < i1 && i1 < i2)
	require.Len(t, store.saved, 1)
	assert.Equal(t, model.DocumentStatusCompiled, store.saved[0].Status)
}

func TestConvertPartialFailureStillProducesDocument(t *testing.T) {
	extractor := &fakeExtractor{
		delays: map[int]time.Duration{1: 30 * time.Millisecond},
		fails:  map[int]string{1: "transcription timed out"},
	}
	svc := NewConvertService(&fakeEnhancer{}, extractor, &fakeCompiler{pdf: []byte("pdf")}, &fakeStore{}, nil, 2)

	res, err := svc.Convert(context.Background(), session("partial", 3))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 3, res.Total)

	source := res.Document.Source
	assert.Contains(t, source, "fragment-0")
	assert.NotContains(t, source, "fragment-1 ")
	assert.Contains(t, source, "fragment-2")
	assert.True(t, strings.Index(source, "fragment-0") < strings.Index(source, "fragment-2"))

	assert.True(t, res.Photos[0].OK)
	assert.False(t, res.Photos[1].OK)
	assert.Equal(t, "transcription timed out", res.Photos[1].Reason)
	assert.True(t, res.Photos[2].OK)
}

func TestConvertAllPhotosFailed(t *testing.T) {
	extractor := &fakeExtractor{fails: map[int]string{0: "no math content detected", 1: "no math content detected"}}
	store := &fakeStore{}
	svc := NewConvertService(&fakeEnhancer{}, extractor, &fakeCompiler{}, store, nil, 2)

	res, err := svc.Convert(context.Background(), session("doomed", 2))
	assert.ErrorIs(t, err, appErr.ErrAllPhotosFailed)
	assert.Nil(t, res)
	assert.Empty(t, store.saved)
}

func TestConvertEnhancementFailureMarksPhotoFailed(t *testing.T) {
	enhancer := &fakeEnhancer{failOn: map[string]error{
		"raw-0": fmt.Errorf("%w: not an image", appErr.ErrDecode),
	}}
	svc := NewConvertService(enhancer, &fakeExtractor{}, &fakeCompiler{pdf: []byte("pdf")}, &fakeStore{}, nil, 2)

	res, err := svc.Convert(context.Background(), session("mixed", 2))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.False(t, res.Photos[0].OK)
	assert.Contains(t, res.Photos[0].Reason, "not an image")
	assert.True(t, res.Photos[1].OK)
}

func TestConvertCompileFailureIsNonFatal(t *testing.T) {
	compiler := &fakeCompiler{detail: engineMissingDetail, err: fmt.Errorf("%w: %s", appErr.ErrCompile, engineMissingDetail)}
	store := &fakeStore{}
	svc := NewConvertService(&fakeEnhancer{}, &fakeExtractor{}, compiler, store, nil, 2)

	res, err := svc.Convert(context.Background(), session("nopdf", 1))
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusCompileFailed, res.Document.Status)
	assert.Equal(t, engineMissingDetail, res.Document.CompileDetail)
	assert.Empty(t, res.Document.PDF)
	require.Len(t, store.saved, 1)
	assert.NotEmpty(t, store.saved[0].Source)
}

func TestConvertEmptySessionRejected(t *testing.T) {
	svc := NewConvertService(&fakeEnhancer{}, &fakeExtractor{}, &fakeCompiler{}, &fakeStore{}, nil, 2)
	_, err := svc.Convert(context.Background(), &model.CaptureSession{DocumentName: "x"})
	assert.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestDefaultDocumentName(t *testing.T) {
	at := time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "notes_2026-08-23_10-30-00", DefaultDocumentName(at, 1))
	assert.Equal(t, "notes_2026-08-23_10-30-00_multi3", DefaultDocumentName(at, 3))
}

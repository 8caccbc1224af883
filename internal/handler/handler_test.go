package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardtex/internal/db"
	"boardtex/internal/handler"
	"boardtex/internal/middleware"
	"boardtex/internal/model"
	"boardtex/internal/pkg/errcode"
	appErr "boardtex/internal/pkg/errors"
	"boardtex/internal/repo"
	"boardtex/internal/store"
)

type fakeConverter struct {
	lastSession *model.CaptureSession
	result      *model.ConvertResult
	err         error
}

func (f *fakeConverter) Convert(ctx context.Context, session *model.CaptureSession) (*model.ConvertResult, error) {
	f.lastSession = session
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &model.ConvertResult{
		Document:  &model.Document{Name: session.DocumentName, Status: model.DocumentStatusCompiled},
		Processed: len(session.Photos),
		Total:     len(session.Photos),
	}, nil
}

type fakeResolver struct {
	lastQuery model.MathQuery
	answer    *model.MathAnswer
	err       error
}

func (f *fakeResolver) Resolve(ctx context.Context, query model.MathQuery) (*model.MathAnswer, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func setupRouter(t *testing.T, converter *fakeConverter, resolver *fakeResolver) (*gin.Engine, *store.NoteStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	conn, err := db.Open(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.ApplyMigrations(conn))
	notes, err := store.NewNoteStore(filepath.Join(dir, "notes"), repo.NewDocumentRepo(conn))
	require.NoError(t, err)

	router := gin.New()
	router.Use(middleware.RequestID())
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api, handler.RouterDeps{
		Convert:     handler.NewConvertHandler(converter, 1),
		Notes:       handler.NewNoteHandler(notes),
		Chat:        handler.NewChatHandler(resolver),
		VisionModel: "gemini-test",
	})
	return router, notes
}

func multipartUpload(t *testing.T, name string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if name != "" {
		require.NoError(t, writer.WriteField("name", name))
	}
	for filename, content := range files {
		part, err := writer.CreateFormFile("photos", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) (float64, map[string]interface{}) {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	code, _ := envelope["code"].(float64)
	data, _ := envelope["data"].(map[string]interface{})
	return code, data
}

func TestConvertHandlerAcceptsBatch(t *testing.T) {
	converter := &fakeConverter{}
	router, _ := setupRouter(t, converter, &fakeResolver{})

	body, contentType := multipartUpload(t, "algebra_wk1", map[string][]byte{
		"a.jpg": []byte("img-a"),
		"b.png": []byte("img-b"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	code, _ := decodeEnvelope(t, resp)
	assert.Zero(t, code)
	require.NotNil(t, converter.lastSession)
	assert.Equal(t, "algebra_wk1", converter.lastSession.DocumentName)
	assert.Len(t, converter.lastSession.Photos, 2)
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
}

func TestConvertHandlerRejectsBadExtension(t *testing.T) {
	converter := &fakeConverter{}
	router, _ := setupRouter(t, converter, &fakeResolver{})

	body, contentType := multipartUpload(t, "", map[string][]byte{"notes.txt": []byte("hello")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	code, _ := decodeEnvelope(t, resp)
	assert.Equal(t, float64(errcode.ErrInvalidFile), code)
	assert.Nil(t, converter.lastSession)
}

func TestConvertHandlerRejectsTraversalName(t *testing.T) {
	converter := &fakeConverter{}
	router, _ := setupRouter(t, converter, &fakeResolver{})

	body, contentType := multipartUpload(t, "../escape", map[string][]byte{"a.jpg": []byte("x")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	code, _ := decodeEnvelope(t, resp)
	assert.Equal(t, float64(errcode.ErrInvalid), code)
	assert.Nil(t, converter.lastSession)
}

func TestConvertHandlerRejectsOversizeBeforePipeline(t *testing.T) {
	converter := &fakeConverter{}
	router, _ := setupRouter(t, converter, &fakeResolver{})

	big := make([]byte, 2<<20)
	body, contentType := multipartUpload(t, "", map[string][]byte{"big.jpg": big})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	code, _ := decodeEnvelope(t, resp)
	assert.Equal(t, float64(errcode.ErrFileTooLarge), code)
	assert.Nil(t, converter.lastSession)
}

func TestConvertHandlerAllPhotosFailed(t *testing.T) {
	converter := &fakeConverter{err: appErr.ErrAllPhotosFailed}
	router, _ := setupRouter(t, converter, &fakeResolver{})

	body, contentType := multipartUpload(t, "", map[string][]byte{"a.jpg": []byte("x")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	code, _ := decodeEnvelope(t, resp)
	assert.Equal(t, float64(errcode.ErrAllPhotosFailed), code)
}

func TestChatHandlerModes(t *testing.T) {
	resolver := &fakeResolver{answer: &model.MathAnswer{Reply: "$$4$$", Path: model.AnswerPathSymbolic}}
	router, _ := setupRouter(t, &fakeConverter{}, resolver)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader([]byte(`{"message":"2+2","use_llm":false}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	code, data := decodeEnvelope(t, resp)
	assert.Zero(t, code)
	assert.Equal(t, "$$4$$", data["reply"])
	assert.Equal(t, model.QueryModeSymbolicOnly, resolver.lastQuery.Mode)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader([]byte(`{"message":"explain derivatives"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, model.QueryModeAllowFallback, resolver.lastQuery.Mode)
}

func TestNoteHandlersLifecycle(t *testing.T) {
	router, notes := setupRouter(t, &fakeConverter{}, &fakeResolver{})
	ctx := context.Background()

	require.NoError(t, notes.Save(ctx, &model.Document{
		Name:          "calc_1",
		Status:        model.DocumentStatusCompileFailed,
		Source:        "\\documentclass{article}",
		CompileDetail: "latex engine not installed",
		Ctime:         10,
	}))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil))
	code, data := decodeEnvelope(t, resp)
	assert.Zero(t, code)
	assert.Equal(t, float64(1), data["count"])

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/notes/calc_1", nil))
	code, data = decodeEnvelope(t, resp)
	assert.Zero(t, code)
	assert.Equal(t, "compile_failed", data["status"])
	assert.Equal(t, "latex engine not installed", data["compile_detail"])
	assert.Equal(t, false, data["has_pdf"])

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/notes/calc_1/download?type=tex", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "\\documentclass{article}", resp.Body.String())

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/notes/calc_1/download?type=pdf", nil))
	code, _ = decodeEnvelope(t, resp)
	assert.Equal(t, float64(errcode.ErrNotFound), code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/v1/notes/calc_1", nil))
	code, _ = decodeEnvelope(t, resp)
	assert.Zero(t, code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/notes/calc_1", nil))
	code, _ = decodeEnvelope(t, resp)
	assert.Equal(t, float64(errcode.ErrNotFound), code)
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t, &fakeConverter{}, &fakeResolver{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	_, data := decodeEnvelope(t, resp)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "gemini-test", data["model"])
	assert.NotEmpty(t, data["timestamp"])
}

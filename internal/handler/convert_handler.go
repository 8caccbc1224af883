package handler

import (
	"context"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"boardtex/internal/model"
	"boardtex/internal/pkg/errcode"
	"boardtex/internal/pkg/response"
	"boardtex/internal/service"
	"boardtex/internal/store"
)

var allowedImageExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
}

// IConverter lets handler tests swap the pipeline for a fake.
type IConverter interface {
	Convert(ctx context.Context, session *model.CaptureSession) (*model.ConvertResult, error)
}

type ConvertHandler struct {
	pipeline     IConverter
	maxFileBytes int64
}

func NewConvertHandler(pipeline IConverter, maxUploadMB int) *ConvertHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 16
	}
	return &ConvertHandler{pipeline: pipeline, maxFileBytes: int64(maxUploadMB) << 20}
}

// Convert accepts a multipart batch of photos ("photos" field, order as
// submitted) plus an optional document name, and runs the full pipeline.
// Every file is validated before any photo enters the pipeline.
func (h *ConvertHandler) Convert(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "multipart form required")
		return
	}
	files := form.File["photos"]
	if len(files) == 0 {
		files = form.File["photo"]
	}
	if len(files) == 0 {
		response.Error(c, errcode.ErrInvalid, "no photos uploaded")
		return
	}

	photos := make([]*model.PhotoAsset, 0, len(files))
	for i, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		mime, ok := allowedImageExt[ext]
		if !ok {
			response.Error(c, errcode.ErrInvalidFile, "unsupported file type: "+file.Filename)
			return
		}
		if file.Size > h.maxFileBytes {
			// fail fast, nothing has entered the pipeline yet
			response.Error(c, errcode.ErrFileTooLarge, "file too large: "+file.Filename)
			return
		}
		raw, err := readUpload(file)
		if err != nil {
			response.Error(c, errcode.ErrInvalidFile, "unreadable upload: "+file.Filename)
			return
		}
		photos = append(photos, &model.PhotoAsset{
			Index:    i,
			Filename: file.Filename,
			Mime:     mime,
			Raw:      raw,
			Status:   model.PhotoStatusPending,
		})
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = service.DefaultDocumentName(time.Now(), len(photos))
	} else if !store.ValidName(name) {
		response.Error(c, errcode.ErrInvalid, "invalid document name")
		return
	}

	result, err := h.pipeline.Convert(c.Request.Context(), &model.CaptureSession{
		DocumentName: name,
		Photos:       photos,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

package vision

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"boardtex/internal/model"
)

// rejectionSentinel is what the model is told to answer when an image holds
// no recognizable math. A rejection is a terminal per-photo outcome and is
// never retried.
const rejectionSentinel = "NO_MATH_CONTENT"

const transcribePrompt = `You are a LaTeX transcription assistant. The image shows handwritten
mathematics photographed from a board or paper.

Transcribe everything you can read into a LaTeX fragment:
- inline math in \( ... \), display math in \[ ... \]
- surrounding prose as plain sentences
- never leave raw math symbols outside math mode
- output ONLY the fragment body: no \documentclass, no \begin{document},
  no markdown code fences, no commentary
- if something is unreadable, insert the LaTeX comment "% unclear"

If the image contains no recognizable mathematical or textual content,
answer with exactly ` + rejectionSentinel + ` and nothing else.`

// Extractor drives one bounded vision call per photo. It never returns an
// error: every outcome is a fragment, failed or not, so one bad photo can
// never abort its batch.
type Extractor struct {
	provider IProvider
	model    string
	timeout  time.Duration
}

func NewExtractor(provider IProvider, model string, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Extractor{provider: provider, model: model, timeout: timeout}
}

func (e *Extractor) Extract(ctx context.Context, index int, enhanced []byte, mime string) *model.ExtractionFragment {
	logger := logutil.GetLogger(ctx).With(zap.Int("photo_index", index))
	text, err := e.callOnce(ctx, enhanced, mime)
	if err != nil && isTransient(err) && ctx.Err() == nil {
		// one retry, and only for failures that can plausibly clear
		logger.Warn("vision call failed, retrying once", zap.Error(err))
		text, err = e.callOnce(ctx, enhanced, mime)
	}
	if err != nil {
		logger.Error("vision extraction failed", zap.Error(err))
		return &model.ExtractionFragment{Index: index, Failed: true, Reason: err.Error()}
	}
	cleaned := stripFences(text)
	if cleaned == "" || strings.EqualFold(cleaned, rejectionSentinel) {
		logger.Info("vision model rejected photo content")
		return &model.ExtractionFragment{Index: index, Failed: true, Reason: "no math content detected"}
	}
	logger.Info("vision extraction ok", zap.Int("chars", len(cleaned)))
	return &model.ExtractionFragment{Index: index, Text: cleaned}
}

// isTransient reports whether a failed vision call is worth a second try:
// throttling and server-side statuses, or transport errors carrying no
// status at all. A 4xx response is a terminal rejection of the request.
func isTransient(err error) bool {
	if errors.Is(err, ErrUnavailable) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return true
}

func (e *Extractor) callOnce(ctx context.Context, enhanced []byte, mime string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.provider.Transcribe(callCtx, e.model, TranscribeRequest{
		Prompt:    transcribePrompt,
		ImageMIME: mime,
		Image:     enhanced,
	})
}

// Generator is the bounded text-generation path shared by the chat fallback.
type Generator struct {
	provider IProvider
	model    string
	timeout  time.Duration
}

func NewGenerator(provider IProvider, model string, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Generator{provider: provider, model: model, timeout: timeout}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.provider.Generate(callCtx, g.model, prompt)
}

// stripFences removes markdown code fences the model sometimes wraps
// fragments in, plus a leading language tag.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		head := strings.ToLower(strings.TrimSpace(s[:idx]))
		if head == "latex" || head == "tex" || head == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

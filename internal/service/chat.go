package service

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"boardtex/internal/model"
	appErr "boardtex/internal/pkg/errors"
)

const fallbackPrompt = `You are a concise math tutor. Answer the question below.
Write all mathematics as inline LaTeX between $ signs. Keep the answer short
and do not include code fences.

Question: %s`

const symbolicOnlyErrReply = "I could not read that as a formal math expression. " +
	"Try something like \"derivative of x^2\" or \"solve 2x+4=0\"."

// ISymbolicEngine answers a question deterministically or reports that it
// cannot.
type ISymbolicEngine interface {
	Answer(question string) (string, error)
}

// IGenerator is the generative text path used as fallback.
type IGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatService resolves math queries through an explicit two-state pipeline:
// a symbolic attempt first, then the generative fallback when allowed. Both
// attempts carry their own timeout; answers are cached by message+mode.
type ChatService struct {
	engine          ISymbolicEngine
	generator       IGenerator
	symbolicTimeout time.Duration
	cache           *expirable.LRU[string, model.MathAnswer]
	markdown        goldmark.Markdown
}

func NewChatService(engine ISymbolicEngine, generator IGenerator, symbolicTimeout time.Duration, cacheSize int, cacheTTL time.Duration) *ChatService {
	if symbolicTimeout <= 0 {
		symbolicTimeout = 5 * time.Second
	}
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	return &ChatService{
		engine:          engine,
		generator:       generator,
		symbolicTimeout: symbolicTimeout,
		cache:           expirable.NewLRU[string, model.MathAnswer](cacheSize, nil, cacheTTL),
		markdown:        goldmark.New(),
	}
}

// Resolve runs the query. The only error it returns is the fallback path
// itself failing; a query the symbolic engine cannot read is an expected
// outcome, not an error.
func (s *ChatService) Resolve(ctx context.Context, query model.MathQuery) (*model.MathAnswer, error) {
	logger := logutil.GetLogger(ctx)
	message := strings.TrimSpace(query.Message)
	if message == "" {
		return s.answer(symbolicOnlyErrReply, model.AnswerPathError), nil
	}
	cacheKey := string(query.Mode) + "|" + message
	if cached, ok := s.cache.Get(cacheKey); ok {
		logger.Debug("chat cache hit")
		return &cached, nil
	}

	reply, err := s.trySymbolic(ctx, message)
	if err == nil {
		ans := s.answer(reply, model.AnswerPathSymbolic)
		s.cache.Add(cacheKey, *ans)
		return ans, nil
	}
	logger.Info("symbolic attempt failed", zap.String("reason", err.Error()))

	if query.Mode != model.QueryModeAllowFallback {
		return s.answer(symbolicOnlyErrReply, model.AnswerPathError), nil
	}
	raw, err := s.generator.Generate(ctx, fmt.Sprintf(fallbackPrompt, message))
	if err != nil {
		logger.Error("fallback generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", appErr.ErrFallbackUnavailable, err)
	}
	ans := s.answer(raw, model.AnswerPathFallback)
	s.cache.Add(cacheKey, *ans)
	return ans, nil
}

// trySymbolic bounds the deterministic attempt: the engine is pure CPU but
// must still never stall the request.
func (s *ChatService) trySymbolic(ctx context.Context, message string) (string, error) {
	type result struct {
		reply string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := s.engine.Answer(message)
		done <- result{reply: reply, err: err}
	}()
	timer := time.NewTimer(s.symbolicTimeout)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.reply, r.err
	case <-timer.C:
		return "", fmt.Errorf("%w: symbolic attempt timed out", appErr.ErrSymbolicParse)
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", appErr.ErrSymbolicParse, ctx.Err())
	}
}

func (s *ChatService) answer(reply string, path model.AnswerPath) *model.MathAnswer {
	formatted := formatReply(reply)
	return &model.MathAnswer{
		Reply:     formatted,
		ReplyHTML: s.renderHTML(formatted),
		Path:      path,
	}
}

func (s *ChatService) renderHTML(reply string) string {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(reply), &buf); err != nil {
		return ""
	}
	return buf.String()
}

var (
	reDisplayMath = regexp.MustCompile(`(?s)\\\[(.*?)\\\]`)
	reLimInfinity = regexp.MustCompile(`\\to\s*oo\b`)
)

// formatReply normalizes math markup for display: \[..\] becomes $$..$$ and
// the oo infinity shorthand after \to becomes the proper symbol. Adjacent
// delimiters that double up into $$$$ collapse back to $$.
func formatReply(reply string) string {
	s := strings.TrimSpace(reply)
	s = reDisplayMath.ReplaceAllString(s, `$$$$$1$$$$`)
	s = reLimInfinity.ReplaceAllString(s, `\to \infty`)
	s = strings.ReplaceAll(s, "$$$$", "$$")
	return s
}

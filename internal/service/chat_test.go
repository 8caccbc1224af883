package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardtex/internal/model"
	appErr "boardtex/internal/pkg/errors"
	"boardtex/internal/symbolic"
)

type fakeGenerator struct {
	mu     sync.Mutex
	calls  int
	prompt string
	reply  string
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

type stallingEngine struct{}

func (stallingEngine) Answer(string) (string, error) {
	time.Sleep(200 * time.Millisecond)
	return "$never$", nil
}

func newChat(gen *fakeGenerator) *ChatService {
	return NewChatService(symbolic.NewEngine(), gen, time.Second, 16, time.Minute)
}

func TestResolveSymbolicFirst(t *testing.T) {
	gen := &fakeGenerator{reply: "unused"}
	svc := newChat(gen)

	ans, err := svc.Resolve(context.Background(), model.MathQuery{Message: "2+2", Mode: model.QueryModeSymbolicOnly})
	require.NoError(t, err)
	assert.Equal(t, "$$4$$", ans.Reply)
	assert.Equal(t, model.AnswerPathSymbolic, ans.Path)
	assert.Equal(t, 0, gen.calls)
}

func TestResolveFallsBackOnProse(t *testing.T) {
	gen := &fakeGenerator{reply: "A derivative measures the rate of change, written \\[\\frac{dy}{dx}\\]."}
	svc := newChat(gen)

	ans, err := svc.Resolve(context.Background(), model.MathQuery{Message: "explain derivatives", Mode: model.QueryModeAllowFallback})
	require.NoError(t, err)
	assert.Equal(t, model.AnswerPathFallback, ans.Path)
	assert.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.prompt, "explain derivatives")
	// never a raw parse-error string, and display math is normalized
	assert.NotContains(t, ans.Reply, "parse")
	assert.Contains(t, ans.Reply, "$$\\frac{dy}{dx}$$")
	assert.NotEmpty(t, ans.ReplyHTML)
}

func TestResolveSymbolicOnlyStopsOnFailure(t *testing.T) {
	gen := &fakeGenerator{reply: "unused"}
	svc := newChat(gen)

	ans, err := svc.Resolve(context.Background(), model.MathQuery{Message: "explain derivatives", Mode: model.QueryModeSymbolicOnly})
	require.NoError(t, err)
	assert.Equal(t, model.AnswerPathError, ans.Path)
	assert.Equal(t, 0, gen.calls)
	assert.NotContains(t, ans.Reply, "ErrSymbolic")
}

func TestResolveFallbackUnavailable(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection reset")}
	svc := newChat(gen)

	_, err := svc.Resolve(context.Background(), model.MathQuery{Message: "explain derivatives", Mode: model.QueryModeAllowFallback})
	assert.ErrorIs(t, err, appErr.ErrFallbackUnavailable)
}

func TestResolveCachesAnswers(t *testing.T) {
	gen := &fakeGenerator{reply: "cached answer"}
	svc := newChat(gen)
	q := model.MathQuery{Message: "explain derivatives", Mode: model.QueryModeAllowFallback}

	first, err := svc.Resolve(context.Background(), q)
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, first.Reply, second.Reply)
	assert.Equal(t, 1, gen.calls)
}

func TestResolveSymbolicTimeoutTriggersFallback(t *testing.T) {
	gen := &fakeGenerator{reply: "fallback wins"}
	svc := NewChatService(stallingEngine{}, gen, 20*time.Millisecond, 16, time.Minute)

	ans, err := svc.Resolve(context.Background(), model.MathQuery{Message: "2+2", Mode: model.QueryModeAllowFallback})
	require.NoError(t, err)
	assert.Equal(t, model.AnswerPathFallback, ans.Path)
	assert.Equal(t, 1, gen.calls)
}

func TestFormatReply(t *testing.T) {
	assert.Equal(t, `$$x^2$$`, formatReply(`\[x^2\]`))
	assert.Equal(t, `$$x^2$$`, formatReply(`$$x^2$$`))
	assert.Equal(t, `$$x^2$$`, formatReply(`$$$$x^2$$$$`))
	assert.Equal(t, `$\lim_{n\to \infty}$`, formatReply(`$\lim_{n\to oo}$`))
	assert.Equal(t, "good food", formatReply("good food"))
}

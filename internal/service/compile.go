package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "boardtex/internal/pkg/errors"
)

const engineMissingDetail = "latex engine not installed"

// Compiler turns LaTeX source into a PDF using whatever engine the host
// provides: latexmk when available, plain pdflatex otherwise. Compilation is
// best effort; the pipeline keeps the source artifact either way.
type Compiler struct {
	timeout time.Duration
}

func NewCompiler(timeout time.Duration) *Compiler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Compiler{timeout: timeout}
}

// Compile runs the toolchain in a scratch directory that is removed on every
// path out. On failure the second return value explains why in a form safe
// to surface to the caller.
func (c *Compiler) Compile(ctx context.Context, name, source string) ([]byte, string, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("document", name))
	dir, err := os.MkdirTemp("", "boardtex-build-*")
	if err != nil {
		return nil, "build dir unavailable", fmt.Errorf("%w: %v", appErr.ErrCompile, err)
	}
	defer os.RemoveAll(dir)

	texPath := filepath.Join(dir, name+".tex")
	if err := os.WriteFile(texPath, []byte(source), 0o644); err != nil {
		return nil, "build dir unavailable", fmt.Errorf("%w: %v", appErr.ErrCompile, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	output, err := c.runEngine(runCtx, dir, name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			logger.Warn("no latex engine on host, keeping source only")
			return nil, engineMissingDetail, fmt.Errorf("%w: %s", appErr.ErrCompile, engineMissingDetail)
		}
		detail := compileDiagnostics(output, err)
		logger.Warn("latex compile failed", zap.String("detail", detail))
		return nil, detail, fmt.Errorf("%w: %s", appErr.ErrCompile, detail)
	}

	pdf, err := os.ReadFile(filepath.Join(dir, name+".pdf"))
	if err != nil || len(pdf) == 0 {
		detail := "engine exited cleanly but produced no pdf"
		logger.Warn("latex compile produced no pdf")
		return nil, detail, fmt.Errorf("%w: %s", appErr.ErrCompile, detail)
	}
	logger.Info("latex compile ok", zap.Int("pdf_bytes", len(pdf)))
	return pdf, "", nil
}

// runEngine prefers latexmk (handles reruns for references) and falls back
// to two pdflatex passes when latexmk is absent.
func (c *Compiler) runEngine(ctx context.Context, dir, name string) ([]byte, error) {
	texFile := name + ".tex"
	if _, err := exec.LookPath("latexmk"); err == nil {
		cmd := exec.CommandContext(ctx, "latexmk", "-pdf", "-interaction=nonstopmode", "-halt-on-error", texFile)
		cmd.Dir = dir
		return cmd.CombinedOutput()
	}
	if _, err := exec.LookPath("pdflatex"); err != nil {
		return nil, exec.ErrNotFound
	}
	var output []byte
	for i := 0; i < 2; i++ {
		cmd := exec.CommandContext(ctx, "pdflatex", "-interaction=nonstopmode", "-halt-on-error", texFile)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		output = append(output, out...)
		if err != nil {
			return output, err
		}
	}
	return output, nil
}

// compileDiagnostics extracts the useful tail of engine output: LaTeX puts
// the actual error on lines starting with "!".
func compileDiagnostics(output []byte, runErr error) string {
	if len(output) == 0 {
		return runErr.Error()
	}
	lines := strings.Split(string(bytes.TrimSpace(output)), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "!") {
			end := i + 3
			if end > len(lines) {
				end = len(lines)
			}
			return strings.TrimSpace(strings.Join(lines[i:end], " "))
		}
	}
	tail := lines
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	return strings.TrimSpace(runErr.Error() + ": " + strings.Join(tail, " "))
}

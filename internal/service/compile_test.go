package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileDiagnosticsPicksLatexError(t *testing.T) {
	output := []byte(`This is pdfTeX, Version 3.14
(./doc.tex
! Undefined control sequence.
l.12 \badmacro
?
`)
	detail := compileDiagnostics(output, errors.New("exit status 1"))
	assert.Contains(t, detail, "Undefined control sequence")
	assert.NotContains(t, detail, "pdfTeX, Version")
}

func TestCompileDiagnosticsFallsBackToTail(t *testing.T) {
	detail := compileDiagnostics([]byte("line1\nline2\nline3"), errors.New("signal: killed"))
	assert.Contains(t, detail, "signal: killed")
	assert.Contains(t, detail, "line3")
}

func TestCompileDiagnosticsEmptyOutput(t *testing.T) {
	detail := compileDiagnostics(nil, errors.New("exit status 2"))
	assert.Equal(t, "exit status 2", detail)
}

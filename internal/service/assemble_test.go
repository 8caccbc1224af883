package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardtex/internal/model"
	appErr "boardtex/internal/pkg/errors"
)

func TestAssembleOrdersByCaptureIndex(t *testing.T) {
	fragments := []*model.ExtractionFragment{
		{Index: 0, Text: "first \\(a\\)"},
		{Index: 1, Text: "second \\(b\\)"},
		{Index: 2, Text: "third \\(c\\)"},
	}
	source, err := Assemble("lecture_1", fragments)
	require.NoError(t, err)

	first := strings.Index(source, "first")
	second := strings.Index(source, "second")
	third := strings.Index(source, "third")
	assert.True(t, first < second && second < third)
	assert.Contains(t, source, "\\section*{Photo 1}")
	assert.Contains(t, source, "\\section*{Photo 3}")
	assert.Contains(t, source, "\\title{lecture\\_1}")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(source), "\\end{document}"))
}

func TestAssembleSkipsFailedFragments(t *testing.T) {
	fragments := []*model.ExtractionFragment{
		{Index: 0, Text: "kept-a"},
		{Index: 1, Failed: true, Reason: "no math content detected"},
		{Index: 2, Text: "kept-c"},
	}
	source, err := Assemble("n", fragments)
	require.NoError(t, err)
	assert.Contains(t, source, "kept-a")
	assert.Contains(t, source, "kept-c")
	assert.NotContains(t, source, "no math content detected")
	// section numbering follows capture position, not surviving count
	assert.Contains(t, source, "\\section*{Photo 3}")
	assert.NotContains(t, source, "\\section*{Photo 2}")
}

func TestAssembleNeutralizesDocumentLevelCommands(t *testing.T) {
	fragments := []*model.ExtractionFragment{
		{Index: 0, Text: "\\documentclass{article}\n\\usepackage{tikz}\n\\begin{document}\nbody \\(x\\)\n\\end{document}"},
	}
	source, err := Assemble("n", fragments)
	require.NoError(t, err)
	assert.Contains(t, source, "body \\(x\\)")
	assert.NotContains(t, source, "tikz")
	assert.Equal(t, 1, strings.Count(source, "\\documentclass"))
	assert.Equal(t, 1, strings.Count(source, "\\begin{document}"))
	assert.Equal(t, 1, strings.Count(source, "\\end{document}"))
}

func TestAssembleFailsWithNoUsableFragment(t *testing.T) {
	_, err := Assemble("n", []*model.ExtractionFragment{
		{Index: 0, Failed: true},
		{Index: 1, Text: "   "},
	})
	assert.ErrorIs(t, err, appErr.ErrAssembly)
}

func TestAssembleSinglePhotoHasNoSections(t *testing.T) {
	source, err := Assemble("n", []*model.ExtractionFragment{{Index: 0, Text: "only"}})
	require.NoError(t, err)
	assert.NotContains(t, source, "\\section*")
	assert.Contains(t, source, "only")
}

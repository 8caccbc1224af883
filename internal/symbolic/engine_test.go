package symbolic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "boardtex/internal/pkg/errors"
)

func TestAnswerArithmetic(t *testing.T) {
	eng := NewEngine()

	reply, err := eng.Answer("2+2")
	require.NoError(t, err)
	assert.Equal(t, "$$4$$", reply)

	reply, err = eng.Answer("What is 1/3 + 1/6?")
	require.NoError(t, err)
	assert.Equal(t, "$$\\frac{1}{2}$$", reply)

	reply, err = eng.Answer("sqrt(16)")
	require.NoError(t, err)
	assert.Equal(t, "$$4$$", reply)
}

func TestAnswerDerivative(t *testing.T) {
	eng := NewEngine()

	reply, err := eng.Answer("derivative of x^2")
	require.NoError(t, err)
	assert.Equal(t, "$$2 x$$", reply)

	reply, err = eng.Answer("differentiate sin(x)")
	require.NoError(t, err)
	assert.Equal(t, "$$\\cos\\left(x\\right)$$", reply)

	reply, err = eng.Answer("derivative of t^3 with respect to t")
	require.NoError(t, err)
	assert.Equal(t, "$$3 t^{2}$$", reply)
}

func TestAnswerIntegral(t *testing.T) {
	eng := NewEngine()

	reply, err := eng.Answer("integrate x")
	require.NoError(t, err)
	assert.Equal(t, "$$\\frac{x^{2}}{2} + C$$", reply)

	reply, err = eng.Answer("integrate x from 0 to 2")
	require.NoError(t, err)
	assert.Equal(t, "$$2$$", reply)

	reply, err = eng.Answer("integral of 1/x")
	require.NoError(t, err)
	assert.Equal(t, "$$\\ln\\left(x\\right) + C$$", reply)
}

func TestAnswerSolve(t *testing.T) {
	eng := NewEngine()

	reply, err := eng.Answer("solve 2x + 4 = 0")
	require.NoError(t, err)
	assert.Equal(t, "$$x = -2$$", reply)

	reply, err = eng.Answer("solve x^2 - 4 = 0")
	require.NoError(t, err)
	assert.Equal(t, "$$x = 2,\\; x = -2$$", reply)

	reply, err = eng.Answer("solve x^2 + 1 = 0")
	assert.ErrorIs(t, err, appErr.ErrSymbolicParse)
	assert.Empty(t, reply)
}

func TestAnswerSimplify(t *testing.T) {
	eng := NewEngine()

	reply, err := eng.Answer("simplify x + 0")
	require.NoError(t, err)
	assert.Equal(t, "$$x$$", reply)

	reply, err = eng.Answer("simplify x/x")
	require.NoError(t, err)
	assert.Equal(t, "$$1$$", reply)
}

func TestAnswerRejectsProse(t *testing.T) {
	eng := NewEngine()

	_, err := eng.Answer("Explain how derivatives work, please")
	assert.ErrorIs(t, err, appErr.ErrSymbolicParse)

	_, err = eng.Answer("")
	assert.ErrorIs(t, err, appErr.ErrSymbolicParse)
}

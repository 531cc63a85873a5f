package pin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateCorrectPINRunsAction(t *testing.T) {
	g := NewGate(PlainVerifier("4321"))
	ran := 0
	g.Open(func() error { ran++; return nil })
	require.Equal(t, Open, g.State())

	ok, err := g.SubmitPIN("4321")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, ran)
	assert.Equal(t, Closed, g.State())
}

func TestGateIncorrectPINStaysOpen(t *testing.T) {
	g := NewGate(PlainVerifier("4321"))
	ran := false
	g.Open(func() error { ran = true; return nil })

	ok, err := g.SubmitPIN("1234")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, ran)
	assert.Equal(t, Open, g.State())
	assert.Equal(t, IncorrectMessage, g.Message())
	assert.Equal(t, "", g.Entered(), "entry cleared after a mismatch")

	ok, err = g.SubmitPIN("4321")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, ran)
	assert.Equal(t, "", g.Message())
}

func TestGateCancelDiscardsAction(t *testing.T) {
	g := NewGate(PlainVerifier("4321"))
	ran := false
	g.Open(func() error { ran = true; return nil })
	g.Cancel()

	assert.Equal(t, Closed, g.State())
	_, err := g.SubmitPIN("4321")
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.False(t, ran)
}

func TestGateSubmitRequiresFourDigits(t *testing.T) {
	g := NewGate(PlainVerifier("4321"))
	g.Open(func() error { return nil })

	g.Type('4')
	g.Type('3')
	assert.False(t, g.CanSubmit())
	_, err := g.Submit()
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, Open, g.State())

	g.Type('2')
	g.Type('1')
	assert.True(t, g.CanSubmit())
	ok, err := g.Submit()
	require.NoError(t, err)
	assert.True(t, ok)

	g.Open(nil)
	_, err = g.SubmitPIN("43210")
	assert.ErrorIs(t, err, ErrInvalidPIN)
}

func TestGatePropagatesActionError(t *testing.T) {
	g := NewGate(PlainVerifier("0000"))
	boom := errors.New("boom")
	g.Open(func() error { return boom })

	ok, err := g.SubmitPIN("0000")
	assert.True(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Closed, g.State())
}

func TestGateDoesNotDistinguishUnsetPIN(t *testing.T) {
	g := NewGate(DenyVerifier{})
	g.Open(func() error { return nil })

	ok, err := g.SubmitPIN("0000")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, IncorrectMessage, g.Message())
}

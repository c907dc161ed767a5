package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutor_Success(t *testing.T) {
	e := NewExecutor()

	called := false
	result := e.Execute(func() error {
		called = true
		return nil
	})

	assert.True(t, called)
	assert.True(t, result.IsSuccess())
	assert.False(t, result.IsError())
	assert.False(t, result.IsPanic())
}

func TestExecutor_Error(t *testing.T) {
	e := NewExecutor()
	boom := errors.New("boom")

	result := e.Execute(func() error { return boom })

	assert.False(t, result.Success)
	assert.True(t, result.IsError())
	assert.ErrorIs(t, result.Error, boom)
	assert.Equal(t, uint64(1), e.Stats().Failed)
}

func TestExecutor_Panic(t *testing.T) {
	tests := []struct {
		name      string
		capture   bool
		wantStack bool
	}{
		{"with stack", true, true},
		{"without stack", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExecutor(WithStackCapture(tt.capture))

			result := e.Execute(func() error { panic("kaboom") })

			assert.True(t, result.IsPanic())
			assert.False(t, result.IsSuccess())
			assert.Equal(t, "kaboom", result.PanicValue)
			assert.Equal(t, tt.wantStack, len(result.PanicStack) > 0)
			assert.Equal(t, uint64(1), e.Stats().Panicked)
		})
	}
}

func TestExecutor_StatsReset(t *testing.T) {
	e := NewExecutor()
	for i := 0; i < 3; i++ {
		e.Execute(func() error { return nil })
	}

	stats := e.Stats()
	assert.Equal(t, uint64(3), stats.Executed)
	assert.GreaterOrEqual(t, int64(stats.TotalDuration), int64(0))

	e.ResetStats()
	assert.Equal(t, Stats{}, e.Stats())
}

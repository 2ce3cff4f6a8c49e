package circuitbreaker

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = fmt.Errorf("upstream failed")

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", MaxFailures: 3, Timeout: time.Minute})

	fail := func() error { return errUpstream }
	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(fail))
	}
	assert.Equal(t, "open", cb.State())

	// Calls are refused without reaching the function.
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerResetsOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", MaxFailures: 3, Timeout: time.Minute})

	require.Error(t, cb.Execute(func() error { return errUpstream }))
	require.Error(t, cb.Execute(func() error { return errUpstream }))
	require.NoError(t, cb.Execute(func() error { return nil }))

	// The failure count reset, so three more failures are needed to trip.
	require.Error(t, cb.Execute(func() error { return errUpstream }))
	require.Error(t, cb.Execute(func() error { return errUpstream }))
	assert.Equal(t, "closed", cb.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", MaxFailures: 1, Timeout: 20 * time.Millisecond})

	require.Error(t, cb.Execute(func() error { return errUpstream }))
	require.Equal(t, "open", cb.State())

	time.Sleep(30 * time.Millisecond)

	// After the timeout one probe call goes through; success closes.
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, "closed", cb.State())
}

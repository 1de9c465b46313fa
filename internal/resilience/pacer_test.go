package resilience

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_EnforcesInterval(t *testing.T) {
	p := NewPacer(30 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, p.Wait(ctx)) // first call admitted immediately

	start := time.Now()
	require.NoError(t, p.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPacer_NoOp(t *testing.T) {
	p := NewPacer(0)
	start := time.Now()
	for range 100 {
		require.NoError(t, p.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Zero(t, p.Interval())
}

func TestPacer_NilReceiver(t *testing.T) {
	var p *Pacer
	assert.NoError(t, p.Wait(context.Background()))
	assert.Zero(t, p.Interval())
}

func TestPacer_ContextCancelled(t *testing.T) {
	p := NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, p.Wait(ctx))
	cancel()
	assert.Error(t, p.Wait(ctx))
}

func TestPacer_Interval(t *testing.T) {
	p := NewPacer(2 * time.Second)
	assert.Equal(t, 2*time.Second, p.Interval())
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "fetch: context deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"net timeout", timeoutErr{}, FailureTimeout},
		{"conn refused", syscall.ECONNREFUSED, FailureConnect},
		{"conn reset", syscall.ECONNRESET, FailureConnect},
		{"dns", errors.New(`dial tcp: lookup example.invalid: no such host`), FailureDNS},
		{"http status", errors.New("fetch: status 503"), FailureHTTP},
		{"wrapped timeout string", errors.New("read tcp 1.2.3.4: i/o timeout"), FailureTimeout},
		{"unknown", errors.New("boom"), FailureOther},
		{"nil", nil, FailureOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

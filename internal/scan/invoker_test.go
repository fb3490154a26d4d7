package scan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnsight/vulnsight/api/schemas"
)

func TestInvokeCallingConventions(t *testing.T) {
	ctx := context.Background()

	t.Run("target only probe", func(t *testing.T) {
		probe := schemas.TargetProbe(func(target string) schemas.RawResult {
			return schemas.RawResult{"seen": target}
		})
		res := Invoke(ctx, probe, "https://example.com", time.Second)
		assert.Equal(t, "https://example.com", res["seen"])
	})

	t.Run("target and timeout probe", func(t *testing.T) {
		probe := schemas.TargetTimeoutProbe(func(target string, timeout time.Duration) schemas.RawResult {
			return schemas.RawResult{"seen": target, "timeout": timeout}
		})
		res := Invoke(ctx, probe, "https://example.com", 2*time.Second)
		assert.Equal(t, "https://example.com", res["seen"])
		assert.Equal(t, 2*time.Second, res["timeout"])
	})

	t.Run("options probe", func(t *testing.T) {
		probe := schemas.OptionsProbe(func(opts schemas.ProbeOptions) schemas.RawResult {
			return schemas.RawResult{"seen": opts.Target, "timeout": opts.Timeout}
		})
		res := Invoke(ctx, probe, "https://example.com", 3*time.Second)
		assert.Equal(t, "https://example.com", res["seen"])
		assert.Equal(t, 3*time.Second, res["timeout"])
	})

	t.Run("nil capability becomes exception result", func(t *testing.T) {
		res := Invoke(ctx, nil, "https://example.com", time.Second)
		assert.Equal(t, "Exception", res["error"])
	})

	t.Run("unsupported signature becomes exception result", func(t *testing.T) {
		res := Invoke(ctx, func() {}, "https://example.com", time.Second)
		require.Equal(t, "Exception", res["error"])
		assert.Contains(t, res["details"], "unsupported capability signature")
	})
}

func TestInvokePanicIsolation(t *testing.T) {
	probe := schemas.TargetProbe(func(target string) schemas.RawResult {
		panic("probe blew up")
	})

	res := Invoke(context.Background(), probe, "https://example.com", time.Second)
	require.Equal(t, "Exception", res["error"])
	assert.Contains(t, res["details"], "probe blew up")
}

func TestInvokeTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	probe := schemas.TargetProbe(func(target string) schemas.RawResult {
		<-release
		return schemas.RawResult{"too": "late"}
	})

	start := time.Now()
	res := Invoke(context.Background(), probe, "https://example.com", 50*time.Millisecond)
	elapsed := time.Since(start)

	require.Equal(t, "Timeout", res["error"])
	// Timeout plus grace, with slack for slow CI.
	assert.Less(t, elapsed, 3*time.Second)
}

func TestInvokeContextCancellation(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())

	probe := schemas.TargetProbe(func(target string) schemas.RawResult {
		<-release
		return schemas.RawResult{"too": "late"}
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := Invoke(ctx, probe, "https://example.com", 10*time.Second)
	require.Equal(t, "Timeout", res["error"])
	assert.Contains(t, res["details"], "batch deadline expired")
}

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildOptionsDefaultsAndOverrides(t *testing.T) {
	o := buildOptions(nil)
	require.Equal(t, defaultTimeout, o.timeout)
	require.NotNil(t, o.now)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o = buildOptions([]Option{nil, WithClock(func() time.Time { return fixed }), WithTimeout(2 * time.Second)})
	require.Equal(t, fixed, o.now())
	require.Equal(t, 2*time.Second, o.timeout)
}

func TestBuildOptionsIgnoresZeroValues(t *testing.T) {
	o := buildOptions([]Option{WithClock(nil), WithTimeout(0), WithTimeout(-time.Second)})
	require.Equal(t, defaultTimeout, o.timeout)
	require.NotNil(t, o.now)
}

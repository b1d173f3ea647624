//go:build !opencl

package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWithoutOpenCL(t *testing.T) {
	_, err := Open(KindOpenCL)
	assert.ErrorIs(t, err, ErrRuntimeUnavailable)

	b, err := Open(KindAuto, WithWorkers(2))
	assert.ErrorIs(t, err, ErrRuntimeUnavailable)
	require.NotNil(t, b)
	assert.Contains(t, []string{"cpu64", "cpu32"}, b.Name())

	b, err = Open(KindCPU32)
	require.NoError(t, err)
	assert.Equal(t, "cpu32", b.Name())
}

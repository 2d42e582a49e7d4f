package diag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComplexErrorHasCode(t *testing.T) {
	err := New(InstallPathUnresolved, "symbolic name %q has no configured path", "lib")
	assert.True(t, HasCode(err, InstallPathUnresolved))
	assert.False(t, HasCode(err, UnknownTargetType))
	assert.Contains(t, err.Error(), "lib")
}

func TestComplexErrorWrappedHasCode(t *testing.T) {
	err := fmt.Errorf("resolving target: %w", New(UnknownTargetType, "target type %q is not registered", "cxx.obje"))
	assert.True(t, HasCode(err, UnknownTargetType))
}

package mountfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashInoStableAndDistinct(t *testing.T) {
	parent := &dirNode{}

	a1 := hashIno(parent, "a")
	a2 := hashIno(parent, "a")
	assert.Equal(t, a1, a2, "hashIno must be deterministic for the same parent and name")

	b := hashIno(parent, "b")
	assert.NotEqual(t, a1, b, "hashIno must distinguish sibling names")
}

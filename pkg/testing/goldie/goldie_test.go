package goldie

import (
	"testing"
)

func TestAssert(t *testing.T) {
	t.Run("should match a golden file", func(t *testing.T) {
		Assert(t, "line_endings", []byte("type Query {\n  users: [ID!]!\n}\n"))
	})

	t.Run("should ignore windows line endings", func(t *testing.T) {
		Assert(t, "line_endings", []byte("type Query {\r\n  users: [ID!]!\r\n}\r\n"))
	})
}

package cryptoutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecret_DestroyZeroes(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	s := NewSecret(buf)
	assert.Equal(t, []byte{1, 2, 3, 4}, s.Bytes())

	s.Destroy()
	assert.Nil(t, s.Bytes())
	assert.Equal(t, []byte{0, 0, 0, 0}, buf, "underlying buffer must be zero-filled")

	// Destroy is idempotent.
	s.Destroy()
}

func TestCopySecret_LeavesOriginal(t *testing.T) {
	buf := []byte{9, 9, 9}
	s := CopySecret(buf)
	s.Destroy()
	assert.Equal(t, []byte{9, 9, 9}, buf, "CopySecret must not own the original")
}

func TestWipe(t *testing.T) {
	buf := []byte{0xff, 0xff}
	Wipe(buf)
	assert.Equal(t, []byte{0, 0}, buf)
}

package fs

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := NewNotFoundError("missing %s", "/a")
	assert.True(t, errors.Is(err, ErrorNotFound))
	assert.False(t, errors.Is(err, ErrorIsADirectory))
}

func TestErrorUnwrapCarriesErrno(t *testing.T) {
	err := NewNotFoundError("missing")
	errno, ok := Errno(err)
	assert.True(t, ok)
	assert.Equal(t, syscall.ENOENT, errno)
}

func TestWrapErrorPreservesCause(t *testing.T) {
	cause := errors.New("disk fell over")
	err := WrapError(ErrorIO, cause, "reading %s", "/x")
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "disk fell over")
}

func TestIsNotFoundAndIsLogic(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("gone")))
	assert.False(t, IsNotFound(NewError(ErrorLogic, "oops")))
	assert.True(t, IsLogic(NewError(ErrorLogic, "oops")))
	assert.False(t, IsLogic(NewNotFoundError("gone")))
}

func TestErrnoAbsentWhenNoneCarried(t *testing.T) {
	_, ok := Errno(errors.New("plain error"))
	assert.False(t, ok)
}

func TestErrorMessageFormatting(t *testing.T) {
	withoutCause := NewError(ErrorAlreadyExists, "file %s", "/a")
	assert.Equal(t, fmt.Sprintf("%s: file /a", ErrorAlreadyExists), withoutCause.Error())

	cause := errors.New("boom")
	withCause := WrapError(ErrorIO, cause, "op failed")
	assert.Contains(t, withCause.Error(), "boom")
	assert.Contains(t, withCause.Error(), "op failed")
}

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInstance struct{ total int }

func (s *stubInstance) Call(method string, args []byte) ([]byte, error) {
	if method != "add" {
		return nil, ErrNoSuchMethod
	}
	return []byte("ok"), nil
}

func TestRegisterAndNew(t *testing.T) {
	Register("test.Stub", func(args []byte) (Instance, error) {
		return &stubInstance{}, nil
	})

	instance, err := New("test.Stub", nil)
	require.NoError(t, err)
	require.NotNil(t, instance)

	out, err := instance.Call("add", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), out)

	_, err = instance.Call("missing", nil)
	assert.ErrorIs(t, err, ErrNoSuchMethod)
}

func TestNewUnregistered(t *testing.T) {
	_, err := New("does.not.Exist", nil)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestSearchPathPushAndRestore(t *testing.T) {
	original := SearchPath()

	previous := PushSearchPath("/scratch/one")
	assert.Equal(t, original, previous)
	assert.Equal(t, []string{"/scratch/one"}, SearchPath())

	outer := PushSearchPath("/scratch/two")
	assert.Equal(t, []string{"/scratch/one"}, outer)
	assert.Equal(t, []string{"/scratch/two", "/scratch/one"}, SearchPath())

	RestoreSearchPath(outer)
	assert.Equal(t, []string{"/scratch/one"}, SearchPath())

	RestoreSearchPath(previous)
	assert.Equal(t, original, SearchPath())
}

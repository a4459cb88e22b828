package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(_ context.Context, text string, _ Context) (string, error) {
	return text, nil
}

func descriptor(name, command string) Descriptor {
	return Descriptor{
		Name:        name,
		Command:     command,
		Description: name + " description",
		Handle:      echoHandler,
	}
}

func TestRegister_DuplicateCommandCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(descriptor("First", "health")))

	err := r.Register(descriptor("Second", "HEALTH"))
	assert.ErrorIs(t, err, ErrDuplicateCommand)

	// The original registration is untouched.
	d, ok := r.Lookup("health")
	require.True(t, ok)
	assert.Equal(t, "First", d.Name)
}

func TestRegister_InvalidDescriptors(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
	}{
		{"missing name", Descriptor{Command: "x", Handle: echoHandler}},
		{"missing command", Descriptor{Name: "X", Handle: echoHandler}},
		{"missing handler", Descriptor{Name: "X", Command: "x"}},
		{"command with slash", Descriptor{Name: "X", Command: "/x", Handle: echoHandler}},
		{"command with space", Descriptor{Name: "X", Command: "a b", Handle: echoHandler}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, NewRegistry().Register(tt.d), ErrInvalidDescriptor)
		})
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(descriptor("Health", "health")))

	for _, token := range []string{"health", "Health", "HEALTH"} {
		d, ok := r.Lookup(token)
		assert.True(t, ok, token)
		assert.Equal(t, "Health", d.Name)
	}

	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}

func TestLookupName_ByCommandOrDisplayName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(descriptor("Healthcare Assistant", "health")))

	d, err := r.LookupName("health")
	require.NoError(t, err)
	assert.Equal(t, "Healthcare Assistant", d.Name)

	d, err = r.LookupName("healthcare assistant")
	require.NoError(t, err)
	assert.Equal(t, "health", d.Command)

	_, err = r.LookupName("nope")
	assert.ErrorIs(t, err, ErrUnknownAssistant)
}

func TestList_RegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(descriptor("B", "b")))
	require.NoError(t, r.Register(descriptor("A", "a")))
	require.NoError(t, r.Register(descriptor("C", "c")))

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "B", list[0].Name)
	assert.Equal(t, "A", list[1].Name)
	assert.Equal(t, "C", list[2].Name)
}

func TestDiscover_SkipsMalformedFactories(t *testing.T) {
	good := func() (Descriptor, error) { return descriptor("Good", "good"), nil }
	noHandler := func() (Descriptor, error) {
		return Descriptor{Name: "Broken", Command: "broken"}, nil
	}
	failing := func() (Descriptor, error) {
		return Descriptor{}, errors.New("load failed")
	}
	duplicate := func() (Descriptor, error) { return descriptor("Dup", "good"), nil }

	registry := Discover(nil, good, noHandler, failing, duplicate)

	list := registry.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Good", list[0].Name)
}

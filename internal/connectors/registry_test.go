package connectors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func stubFactory(cfg Config) (Connector, error) {
	return &restConnector{cfg: cfg}, nil
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("rest", stubFactory))

	factory, err := r.Resolve("rest")
	require.NoError(t, err)
	require.NotNil(t, factory)
}

func TestRegistryResolveUnset(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("")
	require.ErrorIs(t, err, ErrPluginUnset)

	_, err = r.Resolve("   ")
	require.ErrorIs(t, err, ErrPluginUnset)
}

func TestRegistryResolveNotFound(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("missing")
	require.ErrorIs(t, err, ErrPluginNotFound)
	require.Contains(t, err.Error(), "missing")
}

func TestRegistryRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("rest", stubFactory))

	called := false
	require.NoError(t, r.Register("rest", func(cfg Config) (Connector, error) {
		called = true
		return stubFactory(cfg)
	}))

	factory, err := r.Resolve("rest")
	require.NoError(t, err)

	_, err = factory(Config{Locator: "http://example.com"})
	require.NoError(t, err)
	require.True(t, called)
}

func TestRegistryRegisterValidation(t *testing.T) {
	r := NewRegistry()
	require.Error(t, r.Register("", stubFactory))
	require.Error(t, r.Register("rest", nil))
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("zeta", stubFactory))
	require.NoError(t, r.Register("alpha", stubFactory))
	require.NoError(t, r.Register("mid", stubFactory))

	require.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
}

func TestRegisterBuiltins(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	for _, name := range []string{"rest", "catalogue", "dataset", "table", "document", "file", "csv"} {
		_, err := r.Resolve(name)
		require.NoError(t, err, name)
	}
}

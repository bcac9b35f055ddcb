package bus_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/bus/pkg/bus"
	"github.com/systemshift/bus/pkg/bus/bustest"
	"github.com/systemshift/bus/pkg/guid"
)

func TestStaticModule(t *testing.T) {
	mod := bustest.NewModule(g1, "Alpha", iface, "foo", "bar")
	mod.Functions = append(mod.Functions,
		bus.Function{Interface: iface, Name: "foo", New: bustest.NewObject("again")},
		bus.Function{Interface: other, Name: "qux", New: bustest.NewObject("qux")},
	)

	assert.Equal(t, []string{"foo", "bar"}, mod.List(iface))
	assert.Equal(t, []string{"qux"}, mod.List(other))
	assert.Empty(t, mod.List(guid.New()))

	obj := mod.Instantiate("foo")
	require.NotNil(t, obj)
	assert.Equal(t, "foo", obj.(*bustest.Object).Name)
	assert.NotSame(t, obj, mod.Instantiate("foo"), "every call creates a fresh object")
	assert.Nil(t, mod.Instantiate("missing"))

	_, ok := mod.Class(iface, "foo")
	assert.False(t, ok)
}

func TestFunctionID(t *testing.T) {
	id := bus.FunctionID{Module: g1, Name: "foo"}
	assert.Equal(t, "{11111111-1111-1111-1111-111111111111}.foo", id.String())
	assert.Equal(t, id.ImplID(), bus.FunctionID{Module: g1, Name: "foo"}.ImplID())
	assert.NotEqual(t, id.ImplID(), bus.FunctionID{Module: g2, Name: "foo"}.ImplID())
	assert.False(t, id.IsZero())
	assert.True(t, bus.FunctionID{}.IsZero())
}

func TestFunctionBase(t *testing.T) {
	sys := bus.NewSystem(nil)
	base := bus.NewFunctionBase("/modules/alpha.so", sys)

	assert.Equal(t, "/modules/alpha.so", base.ModulePath())
	assert.Same(t, sys, base.System())
	assert.Same(t, sys.Reporter(), base.Reporter())
	assert.Nil(t, bus.FunctionBase{}.Reporter())
}

func TestSearchPath(t *testing.T) {
	dir := t.TempDir()
	deps := filepath.Join(dir, "deps")
	image := filepath.Join(dir, "image")
	require.NoError(t, os.Mkdir(deps, 0o755))
	require.NoError(t, os.Mkdir(image, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(deps, "libdep.so"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(deps, "libboth.so"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(image, "libboth.so"), nil, 0o644))

	sp := bus.NewSearchPath()
	require.NoError(t, sp.Add(deps))
	require.NoError(t, sp.Add(deps))
	assert.Equal(t, []string{deps}, sp.Dirs())
	assert.NotEmpty(t, sp.System())

	assert.Error(t, sp.Add(filepath.Join(dir, "missing")))
	assert.Error(t, sp.Add(filepath.Join(deps, "libdep.so")))

	p, ok := sp.Find("libboth.so", image)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(image, "libboth.so"), p, "image directory wins")

	p, ok = sp.Find("libdep.so", image)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(deps, "libdep.so"), p)

	_, ok = sp.Find("libnothing-here.so", image)
	assert.False(t, ok)

	dirs := sp.Dirs()
	dirs[0] = "changed"
	assert.Equal(t, []string{deps}, sp.Dirs())
}

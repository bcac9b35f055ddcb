package discovery_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/systemshift/bus/pkg/bus"
	"github.com/systemshift/bus/pkg/bus/bustest"
	"github.com/systemshift/bus/pkg/diag"
	"github.com/systemshift/bus/pkg/discovery"
	"github.com/systemshift/bus/pkg/guid"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var iface = guid.MustParse("{AAAAAAAA-0000-0000-0000-000000000001}")

type outcomes struct {
	mu   sync.Mutex
	seen map[string]error
	list []string
}

func (o *outcomes) observe(path string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.seen == nil {
		o.seen = make(map[string]error)
	}
	o.seen[path] = err
	o.list = append(o.list, filepath.Base(path))
}

func (o *outcomes) names() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.list...)
}

type fixture struct {
	dir    string
	sys    *bus.System
	opener *bustest.Opener
	errors []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir(), opener: bustest.NewOpener()}
	reporter := diag.NewReporter()
	reporter.AddAction(diag.LevelError, func(_ diag.Level, msg string, _ diag.Location) {
		f.errors = append(f.errors, msg)
	})
	f.sys = bus.NewSystem(reporter, bus.WithOpener(".so", f.opener))
	t.Cleanup(func() { f.sys.Close() })
	return f
}

// module puts a file called name in the fixture's directory and, when
// served is set, makes the opener serve a module for it
func (f *fixture) module(t *testing.T, name string, served bool) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	if served {
		mod := bustest.NewModule(guid.New(), name, iface, "fn")
		path = f.opener.Add(path, bustest.Serve(mod))
	}
	require.NoError(t, os.WriteFile(path, []byte("image"), 0o644))
	return path
}

func TestScan(t *testing.T) {
	f := newFixture(t)
	f.module(t, "b.so", true)
	f.module(t, "a.so", true)
	f.module(t, "bad.so", false)
	f.module(t, "notes.txt", false)
	require.NoError(t, os.Mkdir(filepath.Join(f.dir, "sub.so"), 0o755))

	var seen outcomes
	err := discovery.Scan(f.sys, f.dir, seen.observe)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.LoadFailure))

	assert.Equal(t, []string{"a.so", "b.so", "bad.so"}, seen.names())
	assert.Len(t, f.sys.ListModules(), 2)
	assert.NotEmpty(t, f.errors)

	var names []string
	for _, info := range f.sys.ListModules() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"a.so", "b.so"}, names)
}

func TestScanSkipsLoaded(t *testing.T) {
	f := newFixture(t)
	f.module(t, "a.so", true)

	require.NoError(t, discovery.Scan(f.sys, f.dir, nil))
	require.NoError(t, discovery.Scan(f.sys, f.dir, nil))
	assert.Len(t, f.opener.Opened(), 1)
}

func TestScanMissingDir(t *testing.T) {
	f := newFixture(t)
	err := discovery.Scan(f.sys, filepath.Join(f.dir, "missing"), nil)
	require.Error(t, err)
	assert.Equal(t, diag.LoadFailure, diag.KindOf(err))
	assert.NotEmpty(t, f.errors)
}

func TestWatcherLoadsNewFiles(t *testing.T) {
	f := newFixture(t)
	var guard sync.Mutex
	var seen outcomes

	w, err := discovery.NewWatcher(f.sys, &guard, []string{f.dir},
		discovery.WithDebounce(20*time.Millisecond),
		discovery.WithObserver(seen.observe))
	require.NoError(t, err)
	assert.Equal(t, []string{f.dir}, w.Dirs())

	var g errgroup.Group
	g.Go(func() error { return w.Run(context.Background()) })

	path := f.module(t, "late.so", true)
	f.module(t, "ignored.txt", false)

	require.Eventually(t, func() bool {
		guard.Lock()
		defer guard.Unlock()
		return f.sys.Loaded(path)
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Close())
	require.NoError(t, g.Wait())

	assert.Equal(t, []string{"late.so"}, seen.names())
}

func TestWatcherStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	var guard sync.Mutex

	w, err := discovery.NewWatcher(f.sys, &guard, []string{f.dir})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var g errgroup.Group
	g.Go(func() error { return w.Run(ctx) })
	cancel()
	assert.ErrorIs(t, g.Wait(), context.Canceled)
}

func TestWatcherMissingDir(t *testing.T) {
	f := newFixture(t)
	_, err := discovery.NewWatcher(f.sys, &sync.Mutex{}, []string{filepath.Join(f.dir, "missing")})
	require.Error(t, err)
	assert.Equal(t, diag.LoadFailure, diag.KindOf(err))
}

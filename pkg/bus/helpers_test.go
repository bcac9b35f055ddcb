package bus_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/systemshift/bus/pkg/bus"
	"github.com/systemshift/bus/pkg/bus/bustest"
	"github.com/systemshift/bus/pkg/diag"
	"github.com/systemshift/bus/pkg/guid"
)

var (
	g1    = guid.MustParse("{11111111-1111-1111-1111-111111111111}")
	g2    = guid.MustParse("{22222222-2222-2222-2222-222222222222}")
	iface = guid.MustParse("{AAAAAAAA-0000-0000-0000-000000000001}")
	other = guid.MustParse("{AAAAAAAA-0000-0000-0000-000000000002}")
)

type event struct {
	level diag.Level
	msg   string
}

// recorder captures every reported event
type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) action(level diag.Level, msg string, _ diag.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{level, msg})
}

func (r *recorder) at(level diag.Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var msgs []string
	for _, e := range r.events {
		if e.level == level {
			msgs = append(msgs, e.msg)
		}
	}
	return msgs
}

func (r *recorder) contains(level diag.Level, substr string) bool {
	for _, msg := range r.at(level) {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

type fixture struct {
	sys    *bus.System
	opener *bustest.Opener
	rec    *recorder
}

func newFixture(t *testing.T, opts ...bus.Option) *fixture {
	t.Helper()

	f := &fixture{opener: bustest.NewOpener(), rec: &recorder{}}
	reporter := diag.NewReporter()
	diag.AttachAll(reporter, diag.LevelDebug, f.rec.action)

	opts = append([]bus.Option{bus.WithOpener(".so", f.opener)}, opts...)
	f.sys = bus.NewSystem(reporter, opts...)
	t.Cleanup(func() { f.sys.Close() })
	return f
}

// alphaBeta registers the two modules used throughout the resolution tests
func (f *fixture) alphaBeta(t *testing.T) {
	t.Helper()
	require.NoError(t, f.sys.WrapBuiltin(serve(bustest.NewModule(g1, "Alpha", iface, "foo"))))
	require.NoError(t, f.sys.WrapBuiltin(serve(bustest.NewModule(g2, "Beta", iface, "foo", "bar"))))
}

func serve(mod bus.Module) bus.Generator {
	return func(*bus.System) (bus.Module, error) {
		return mod, nil
	}
}

// closingModule records when it is dropped
type closingModule struct {
	*bus.Static
	onClose func()
}

func (m *closingModule) Close() error {
	m.onClose()
	return nil
}

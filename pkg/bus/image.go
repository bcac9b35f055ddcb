package bus

import (
	"errors"
	"plugin"
)

// Image is a module binary mapped into the process
type Image interface {
	// Lookup returns an exported symbol
	Lookup(symbol string) (any, error)

	// Close unmaps the image. It is called exactly once.
	Close() error
}

// Opener is a platform facility that maps module binaries. Implementations
// must only resolve the image's dependencies through sp.
type Opener interface {
	Open(path string, sp *SearchPath) (Image, error)
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(path string, sp *SearchPath) (Image, error)

// Open implements Opener
func (f OpenerFunc) Open(path string, sp *SearchPath) (Image, error) {
	return f(path, sp)
}

// PluginOpener maps Go plugins built with -buildmode=plugin.
//
// The image is opened by absolute path, so the image itself is never
// searched for. The Go runtime cannot unmap a plugin; Close only forgets it.
type PluginOpener struct{}

// Open implements Opener
func (PluginOpener) Open(path string, _ *SearchPath) (Image, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &pluginImage{p: p}, nil
}

var errImageClosed = errors.New("image closed")

type pluginImage struct {
	p *plugin.Plugin
}

func (i *pluginImage) Lookup(symbol string) (any, error) {
	if i.p == nil {
		return nil, errImageClosed
	}
	sym, err := i.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

func (i *pluginImage) Close() error {
	i.p = nil
	return nil
}

package dfufile

import (
	"path/filepath"
	"strings"
)

// Source tells the decoder how to interpret the input bytes.
// It is either Flat or Container.
type Source interface {
	isSource()
}

// Flat treats the whole input as a single element.
type Flat struct {
	// Address is the device address of the first byte
	Address uint32

	// Addressed is false when the caller did not supply an address
	Addressed bool
}

// Container decodes the input as a DfuSe container with prefix, targets and suffix.
type Container struct{}

func (Flat) isSource()      {}
func (Container) isSource() {}

// FlatAt returns a Flat source placed at addr.
func FlatAt(addr uint32) Flat {
	return Flat{Address: addr, Addressed: true}
}

// SourceForPath picks the source for a file name: ".dfu" files are
// containers, anything else is a flat binary placed at addr when addr is
// non-nil.
func SourceForPath(path string, addr *uint32) Source {
	if strings.EqualFold(filepath.Ext(path), ".dfu") {
		return Container{}
	}
	if addr == nil {
		return Flat{}
	}
	return FlatAt(*addr)
}

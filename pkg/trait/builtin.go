package trait

import (
	"encoding/binary"

	"github.com/systemshift/bus/pkg/guid"
)

// Drop releases an object
var Drop = Define[DropVTable]("{8FCE5F3E-CE61-4334-AAED-B00F457678A5}", "Drop", "drop")

type DropVTable struct {
	Drop   func(obj Object, op OpID)
	DropID OpID
}

// Clone duplicates an object
var Clone = Define[CloneVTable]("{94FB1A00-BDB3-4752-B287-CF1DBD2897BB}", "Clone", "clone")

type CloneVTable struct {
	Clone   func(obj Object, op OpID) Object
	CloneID OpID
}

// DataDeleter releases buffers that were returned across a module boundary
var DataDeleter = Define[DataDeleterVTable]("{7ACE6C2C-C413-4B4C-B215-82321A7734ED}", "DataDeleter", "free")

type DataDeleterVTable struct {
	Free   func(obj Object, op OpID, data []byte)
	FreeID OpID
}

// Data is a read-only buffer owned by the module that produced it. The
// receiver must call Free once it is done with Bytes.
type Data struct {
	Bytes   []byte
	Deleter Trait[DataDeleterVTable]
}

// Free hands the buffer back to its owner
func (d *Data) Free() {
	if d.Deleter.Valid() {
		d.Deleter.VTable.Free(d.Deleter.Handle, d.Deleter.VTable.FreeID, d.Bytes)
	}
	d.Bytes = nil
	d.Deleter = Trait[DataDeleterVTable]{}
}

// Display renders an object for humans
var Display = Define[DisplayVTable]("{695DCDCB-84F1-4B6D-9725-5E4EC605F1FA}", "Display", "display")

type DisplayVTable struct {
	Display   func(obj Object, op OpID) Data
	DisplayID OpID
}

// Endian selects the byte order of serialized data
type Endian int

const (
	BigEndian Endian = iota
	LittleEndian
)

// ByteOrder returns the encoding/binary order for e
func (e Endian) ByteOrder() binary.ByteOrder {
	if e == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Serialize converts an object to and from bytes
var Serialize = Define[SerializeVTable]("{6AFE2650-765C-4C86-B38E-2A0236D47AFF}", "Serialize", "serialize", "deserialize")

type SerializeVTable struct {
	Serialize     func(obj Object, op OpID, endian Endian) Data
	SerializeID   OpID
	Deserialize   func(obj Object, op OpID, data Data, endian Endian)
	DeserializeID OpID
}

// Hash computes an object's hash
var Hash = Define[HashVTable]("{AEA8007A-5028-483B-A906-3C8C4D95B83A}", "Hash", "hash")

type HashVTable struct {
	Hash   func(obj Object, op OpID) uint64
	HashID OpID
}

// Equal compares two objects of the same implementation
var Equal = Define[EqualVTable]("{C4AACF15-C6AA-4E0C-9778-7897AD7A43F1}", "Equal", "equal")

type EqualVTable struct {
	Equal   func(obj Object, op OpID, rhs Object) bool
	EqualID OpID
}

// Factory constructs objects by class id
var Factory = Define[FactoryVTable]("{AEE0881D-549F-4919-9142-B8CB9793581E}", "Factory", "create")

type FactoryVTable struct {
	Create   func(obj Object, op OpID, class guid.GUID) Object
	CreateID OpID
}

// PluginInfo is what a module reports through the Plugin trait
type PluginInfo struct {
	ID     guid.GUID
	Symbol string
	Desc   string
}

// Plugin is exposed by every loadable module
var Plugin = Define[PluginVTable]("{6F81306C-C9CB-4512-BAA8-AA978FF3F188}", "Plugin", "getInfo", "init")

type PluginVTable struct {
	GetInfo   func(obj Object, op OpID) PluginInfo
	GetInfoID OpID
	Init      func(obj Object, op OpID)
	InitID    OpID
}

// DisplayString renders an object through its Display table and frees the
// returned buffer
func DisplayString(t Trait[DisplayVTable]) string {
	data := t.VTable.Display(t.Handle, t.VTable.DisplayID)
	s := string(data.Bytes)
	data.Free()
	return s
}

package trait

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/bus/pkg/diag"
	"github.com/systemshift/bus/pkg/guid"
)

type counter struct {
	n     uint64
	freed int
}

func (c *counter) VTable(id guid.GUID) any {
	switch id {
	case Hash.ID:
		return &HashVTable{
			Hash:   func(obj Object, op OpID) uint64 { return obj.(*counter).n },
			HashID: Hash.OpID("hash"),
		}
	case Display.ID:
		return &DisplayVTable{
			Display: func(obj Object, op OpID) Data {
				return Data{Bytes: []byte("counter"), Deleter: Trait[DataDeleterVTable]{
					Handle: obj,
					VTable: &DataDeleterVTable{
						Free:   func(obj Object, op OpID, data []byte) { obj.(*counter).freed++ },
						FreeID: DataDeleter.OpID("free"),
					},
				}}
			},
			DisplayID: Display.OpID("display"),
		}
	}
	return nil
}

type lease struct {
	target Object
	valid  bool
}

func (l *lease) VTable(id guid.GUID) any { return l.target.VTable(id) }
func (l *lease) Target() Object          { return l.target }
func (l *lease) Valid() bool             { return l.valid }

func TestDefine(t *testing.T) {
	assert.Equal(t, "{6AFE2650-765C-4C86-B38E-2A0236D47AFF}", Serialize.ID.String())
	assert.Equal(t, []Op{{Name: "serialize", ID: 1}, {Name: "deserialize", ID: 2}}, Serialize.Ops)
	assert.Equal(t, OpID(3), Select.OpID("best"))
	assert.Zero(t, Select.OpID("missing"))
	assert.Equal(t, "Hash {AEA8007A-5028-483B-A906-3C8C4D95B83A}", Hash.String())
}

func TestBuiltinIDsAreDistinct(t *testing.T) {
	ids := []guid.GUID{
		Drop.ID, Clone.ID, DataDeleter.ID, Display.ID, Serialize.ID,
		Hash.ID, Equal.ID, Select.ID, Factory.ID, Plugin.ID,
	}
	seen := make(map[guid.GUID]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate trait id %s", id)
		seen[id] = true
	}
}

func TestViewAs(t *testing.T) {
	obj := &counter{n: 42}

	h, err := ViewAs(obj, Hash)
	require.NoError(t, err)
	assert.True(t, h.Valid())
	assert.Equal(t, uint64(42), h.VTable.Hash(h.Handle, h.VTable.HashID))

	_, err = ViewAs(obj, Equal)
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.TraitMismatch))

	_, err = ViewAs(nil, Hash)
	assert.True(t, errors.Is(err, diag.TraitMismatch))
}

func TestViewAsLease(t *testing.T) {
	obj := &counter{n: 7}
	l := &lease{target: obj, valid: true}

	h, err := ViewAs[HashVTable](l, Hash)
	require.NoError(t, err)
	assert.Same(t, obj, h.Handle)
	assert.True(t, h.Valid())

	l.valid = false
	assert.False(t, h.Valid())

	_, err = ViewAs[HashVTable](l, Hash)
	assert.True(t, errors.Is(err, diag.TraitMismatch))
	assert.False(t, Implements(l, Hash.ID))
}

func TestImplements(t *testing.T) {
	obj := &counter{}
	assert.True(t, Implements(obj, Hash.ID))
	assert.False(t, Implements(obj, Clone.ID))
	assert.False(t, Implements(nil, Hash.ID))

	tables := Tables{Clone.ID: &CloneVTable{}}
	assert.True(t, Implements(tables, Clone.ID))
	assert.False(t, Implements(tables, Hash.ID))
}

func TestZeroTraitInvalid(t *testing.T) {
	var tr Trait[HashVTable]
	assert.False(t, tr.Valid())
}

func TestDisplayStringFreesData(t *testing.T) {
	obj := &counter{}
	d, err := ViewAs(obj, Display)
	require.NoError(t, err)

	assert.Equal(t, "counter", DisplayString(d))
	assert.Equal(t, 1, obj.freed)
}

func TestDataFreeWithoutDeleter(t *testing.T) {
	d := Data{Bytes: []byte("x")}
	d.Free()
	assert.Nil(t, d.Bytes)
}

func TestEndian(t *testing.T) {
	buf := make([]byte, 2)
	BigEndian.ByteOrder().PutUint16(buf, 0x0102)
	assert.Equal(t, []byte{1, 2}, buf)
	LittleEndian.ByteOrder().PutUint16(buf, 0x0102)
	assert.Equal(t, []byte{2, 1}, buf)
}

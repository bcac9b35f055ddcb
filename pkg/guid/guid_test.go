package guid

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/bus/pkg/diag"
)

func TestRoundTrip(t *testing.T) {
	tests := []string{
		"{00000000-0000-0000-0000-000000000000}",
		"{8FCE5F3E-CE61-4334-AAED-B00F457678A5}",
		"{FFFFFFFF-FFFF-FFFF-FFFF-FFFFFFFFFFFF}",
		"{6f81306c-c9cb-4512-baa8-aa978ff3f188}",
		"{0123abcd-EF45-6789-aBcD-0123456789Ef}",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			g, err := Parse(text)
			require.NoError(t, err)
			assert.Equal(t, strings.ToUpper(text), g.String())

			canon, err := Canonical(text)
			require.NoError(t, err)
			assert.Equal(t, canon, g.String())
		})
	}
}

func TestParseValue(t *testing.T) {
	g, err := Parse("{8FCE5F3E-CE61-4334-AAED-B00F457678A5}")
	require.NoError(t, err)
	assert.Equal(t, GUID{High: 0x8FCE5F3ECE614334, Low: 0xAAEDB00F457678A5}, g)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"missing braces", "8FCE5F3E-CE61-4334-AAED-B00F457678A5"},
		{"missing closing brace", "{8FCE5F3E-CE61-4334-AAED-B00F457678A5"},
		{"wrong brackets", "(8FCE5F3E-CE61-4334-AAED-B00F457678A5)"},
		{"too few digits", "{8FCE5F3E-CE61-4334-AAED-B00F457678A}"},
		{"too many digits", "{8FCE5F3E-CE61-4334-AAED-B00F457678A55}"},
		{"non hex", "{8FCE5F3E-CE61-4334-AAED-B00F457678AZ}"},
		{"dash misplaced", "{8FCE5F3EC-E61-4334-AAED-B00F457678A5}"},
		{"no dashes", "{8FCE5F3ECE614334AAEDB00F457678A5000000}"},
		{"urn form", "urn:uuid:8fce5f3e-ce61-4334-aaed-b00f457678a5"},
		{"raw hex", "8FCE5F3ECE614334AAEDB00F457678A5"},
		{"module name", "Alpha"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, diag.MalformedIdentifier))
		})
	}

	assert.Panics(t, func() { MustParse("nope") })
}

func TestUUIDConversion(t *testing.T) {
	u := uuid.MustParse("8fce5f3e-ce61-4334-aaed-b00f457678a5")
	g := FromUUID(u)
	assert.Equal(t, "{8FCE5F3E-CE61-4334-AAED-B00F457678A5}", g.String())
	assert.Equal(t, u, g.UUID())
}

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsNil())
	assert.True(t, Nil.IsNil())

	parsed, err := Parse(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
}

func TestNewSHA1(t *testing.T) {
	ns := MustParse("{6F81306C-C9CB-4512-BAA8-AA978FF3F188}")
	assert.Equal(t, ns.NewSHA1("foo"), ns.NewSHA1("foo"))
	assert.NotEqual(t, ns.NewSHA1("foo"), ns.NewSHA1("bar"))
	assert.NotEqual(t, ns.NewSHA1("foo"), New().NewSHA1("foo"))
}

func TestCompare(t *testing.T) {
	ids := []GUID{
		{High: 2, Low: 0},
		{High: 1, Low: 5},
		{High: 1, Low: 1},
		{High: 0, Low: 9},
	}
	sort.Slice(ids, func(i, j int) bool { return Compare(ids[i], ids[j]) < 0 })

	assert.Equal(t, []GUID{
		{High: 0, Low: 9},
		{High: 1, Low: 1},
		{High: 1, Low: 5},
		{High: 2, Low: 0},
	}, ids)
	assert.Zero(t, Compare(ids[0], ids[0]))
}

func TestText(t *testing.T) {
	type doc struct {
		ID GUID `json:"id"`
	}

	in := doc{ID: MustParse("{AEE0881D-549F-4919-9142-B8CB9793581E}")}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"{AEE0881D-549F-4919-9142-B8CB9793581E}"}`, string(data))

	var out doc
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	err = json.Unmarshal([]byte(`{"id":"bogus"}`), &out)
	assert.True(t, errors.Is(err, diag.MalformedIdentifier))
}

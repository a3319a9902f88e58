package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeSupervisorSet(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "json array", raw: `["u1","u2"]`, want: []string{"u1", "u2"}},
		{name: "array with duplicates", raw: `["u1","u2","u1"]`, want: []string{"u1", "u2"}},
		{name: "array of numbers", raw: `[12,7]`, want: []string{"12", "7"}},
		{name: "mixed array", raw: `["u1",42,null]`, want: []string{"u1", "42"}},
		{name: "object of values", raw: `{"a":"u2","b":"u1"}`, want: []string{"u1", "u2"}},
		{name: "doubly encoded array", raw: `"[\"u1\",\"u2\"]"`, want: []string{"u1", "u2"}},
		{name: "null", raw: `null`, want: nil},
		{name: "empty string", raw: ``, want: nil},
		{name: "malformed", raw: `{oops`, want: nil},
		{name: "bare scalar", raw: `42`, want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DecodeSupervisorSet([]byte(tc.raw)))
		})
	}
}

func TestEncodeSupervisorSet(t *testing.T) {
	encoded := EncodeSupervisorSet([]string{"u1", "u2", "u1"})
	if assert.NotNil(t, encoded) {
		assert.Equal(t, `["u1","u2"]`, *encoded)
	}

	assert.Nil(t, EncodeSupervisorSet(nil))
	assert.Nil(t, EncodeSupervisorSet([]string{}))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	encoded := EncodeSupervisorSet([]string{"sup-1", "sup-2"})
	if assert.NotNil(t, encoded) {
		assert.Equal(t, []string{"sup-1", "sup-2"}, DecodeSupervisorSet([]byte(*encoded)))
	}
}

package mapping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_PreservesInsertionOrder(t *testing.T) {
	r := NewRecord()
	r.SetString("zeta", "1")
	r.SetString("alpha", "2")
	r.SetString("mid", "3")

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, r.Keys())
	assert.Equal(t, 3, r.Len())
}

func TestRecord_SetExistingKeyKeepsPosition(t *testing.T) {
	r := NewRecord()
	r.SetString("a", "1")
	r.SetString("b", "2")
	r.SetString("a", "updated")

	assert.Equal(t, []string{"a", "b"}, r.Keys())
	v, ok := r.Get("a")
	require.True(t, ok)
	require.NotNil(t, v)
	assert.Equal(t, "updated", *v)
}

func TestRecord_NullValues(t *testing.T) {
	r := NewRecord()
	r.Set("missing", nil)
	r.SetString("present", "x")

	v, ok := r.Get("missing")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = r.Get("absent")
	assert.False(t, ok)
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	r := NewRecord()
	r.SetString("full_name", "Acme Corp")
	r.Set("address", nil)
	r.SetString("zip", "78701")

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"full_name":"Acme Corp","address":null,"zip":"78701"}`, string(data))

	var decoded Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, r.Equal(&decoded))
	assert.Equal(t, []string{"full_name", "address", "zip"}, decoded.Keys())
}

func TestRecord_UnmarshalCoercesScalars(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"count": 42, "ratio": 0.5, "ok": true, "gone": null}`), &r))

	v, _ := r.Get("count")
	require.NotNil(t, v)
	assert.Equal(t, "42", *v)

	v, _ = r.Get("ratio")
	require.NotNil(t, v)
	assert.Equal(t, "0.5", *v)

	v, _ = r.Get("ok")
	require.NotNil(t, v)
	assert.Equal(t, "true", *v)

	v, _ = r.Get("gone")
	assert.Nil(t, v)
}

func TestRecord_UnmarshalRejectsNonObject(t *testing.T) {
	var r Record
	assert.Error(t, json.Unmarshal([]byte(`["a","b"]`), &r))
	assert.Error(t, json.Unmarshal([]byte(`"text"`), &r))
}

func TestNormalizedRecord_Helpers(t *testing.T) {
	v := "value"
	blank := "  "
	n := NormalizedRecord{"a": &v, "b": nil, "c": &blank}

	assert.Equal(t, "value", n.Field("a"))
	assert.Equal(t, "", n.Field("b"))
	assert.Equal(t, "", n.Field("absent"))

	assert.True(t, n.HasValue("a"))
	assert.False(t, n.HasValue("b"))
	assert.False(t, n.HasValue("c"))
	assert.False(t, n.HasValue("absent"))
}

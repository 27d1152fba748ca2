package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlob_RoundTripsAnyJSON(t *testing.T) {
	for _, raw := range []string{`"aXY="`, `[1,2,3]`, `{"bob":"a2I="}`, `42`, `true`} {
		var b Blob
		require.NoError(t, json.Unmarshal([]byte(raw), &b), raw)
		assert.Equal(t, raw, string(b))

		out, err := json.Marshal(b)
		require.NoError(t, err)
		assert.Equal(t, raw, string(out))
	}
}

func TestBlob_NullAndZero(t *testing.T) {
	var b Blob
	assert.True(t, b.IsZero())
	assert.Equal(t, "null", string(b.JSON()))

	require.NoError(t, json.Unmarshal([]byte(`null`), &b))
	assert.Nil(t, b)

	out, err := json.Marshal(struct {
		V Blob `json:"v"`
	}{})
	require.NoError(t, err)
	assert.Equal(t, `{"v":null}`, string(out))
}

func TestBlob_String(t *testing.T) {
	assert.Equal(t, "Y3Q=", StringBlob("Y3Q=").String())
	assert.Equal(t, `[1,2]`, Blob(`[1,2]`).String())
	assert.Equal(t, `{"a":"b"}`, string(JSONBlob(map[string]string{"a": "b"})))
}

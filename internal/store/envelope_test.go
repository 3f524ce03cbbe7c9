package store

import (
	"testing"

	gocid "github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSON_SortedKeys(t *testing.T) {
	got, err := CanonicalJSON(map[string]interface{}{"b": 1, "a": 2})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1}`, string(got))
}

func TestCanonicalJSON_NestedObjects(t *testing.T) {
	got, err := CanonicalJSON(map[string]interface{}{
		"z": map[string]interface{}{"b": 1, "a": 2},
		"a": "first",
		"l": []interface{}{3, 1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"first","l":[3,1,2],"z":{"a":2,"b":1}}`, string(got))
}

func TestCanonicalJSON_EnvelopeStable(t *testing.T) {
	env := Envelope{V: 1, Name: "doc", Digest: "00ff", FileHashOp: "sha256", Proof: []byte{1, 2}}
	a, err := CanonicalJSON(env)
	require.NoError(t, err)
	b, err := CanonicalJSON(&env)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, string(a), `"file_hash_op":"sha256"`)
	assert.NotContains(t, string(a), `"prev"`)
}

func TestEnvelope_DetachedRejectsDigestMismatch(t *testing.T) {
	dt := sampleProof(t, "payload")
	env, err := newEnvelope("doc", dt, gocid.Undef)
	require.NoError(t, err)

	_, err = env.Detached()
	require.NoError(t, err)

	env.Digest = "00"
	_, err = env.Detached()
	assert.ErrorIs(t, err, ErrCorrupt)
}

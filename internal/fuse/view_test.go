package fuse

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/stampdag/internal/codec"
	"github.com/systemshift/stampdag/internal/oracle"
	"github.com/systemshift/stampdag/internal/proof"
	"github.com/systemshift/stampdag/internal/store"
)

func newTestView(t *testing.T) (*view, *proof.DetachedTimestamp) {
	t.Helper()
	repo, err := store.Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	dt, err := proof.NewDetachedFromReader(proof.SHA256(), strings.NewReader("mounted"))
	require.NoError(t, err)
	leaf := dt.Timestamp.AddOp(proof.Append([]byte{7})).AddOp(proof.SHA256())
	leaf.AddAttestation(proof.Bitcoin(42))
	_, _, err = repo.Save("doc", dt)
	require.NoError(t, err)

	chain := oracle.NewStatic()
	chain.Add(42, leaf.Msg(), time.Unix(1500000000, 0))

	v := &view{
		repo:    repo,
		oracles: proof.Oracles{proof.KindBitcoin: chain},
		log:     zerolog.Nop(),
	}
	return v, dt
}

func TestView_ProofFile(t *testing.T) {
	v, dt := newTestView(t)
	data, err := v.proofFile("doc")
	require.NoError(t, err)

	back, err := codec.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, proof.Equal(dt.Timestamp, back.Timestamp))
}

func TestView_InfoAndDigest(t *testing.T) {
	v, dt := newTestView(t)
	info, err := v.info("doc")
	require.NoError(t, err)
	assert.Contains(t, string(info), "verify BitcoinBlockHeaderAttestation(42)")

	digest, err := v.digest("doc")
	require.NoError(t, err)
	assert.Equal(t, "sha256 "+hex.EncodeToString(dt.Digest())+"\n", string(digest))
}

func TestView_Verify(t *testing.T) {
	v, _ := newTestView(t)
	out, err := v.verifyReport(context.Background(), "doc")
	require.NoError(t, err)
	assert.Contains(t, string(out), "verified BitcoinBlockHeaderAttestation(42)")

	v.oracles = nil
	out, err = v.verifyReport(context.Background(), "doc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "error: "))
}

func TestView_Revision(t *testing.T) {
	v, dt := newTestView(t)
	dt.Timestamp.AddAttestation(proof.Pending("https://cal.example"))
	_, _, err := v.repo.Save("doc", dt)
	require.NoError(t, err)

	data, err := v.revision("doc", 1)
	require.NoError(t, err)
	var rev revisionView
	require.NoError(t, json.Unmarshal(data, &rev))
	assert.Empty(t, rev.Prev)
	assert.NotContains(t, rev.Tree, "PendingAttestation")

	data, err = v.revision("doc", 0)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rev))
	assert.NotEmpty(t, rev.Prev)
	assert.Contains(t, rev.Tree, "PendingAttestation")

	_, err = v.revision("doc", 2)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestView_Missing(t *testing.T) {
	v, _ := newTestView(t)
	assert.False(t, v.exists("nope"))
	_, err := v.info("nope")
	assert.Equal(t, syscall.ENOENT, errno(err))

	require.NoError(t, v.repo.Delete("doc"))
	assert.False(t, v.exists("doc"))
	_, err = v.digest("doc")
	assert.Equal(t, syscall.ENOENT, errno(err))
}

func TestWindow(t *testing.T) {
	data := []byte("0123456789")
	assert.Equal(t, []byte("0123"), window(data, make([]byte, 4), 0))
	assert.Equal(t, []byte("89"), window(data, make([]byte, 4), 8))
	assert.Nil(t, window(data, make([]byte, 4), 10))
}

package codec

import (
	"bytes"
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/stampdag/internal/proof"
)

func newDetached(t *testing.T, content string) *proof.DetachedTimestamp {
	t.Helper()
	dt, err := proof.NewDetachedFromReader(proof.SHA256(), strings.NewReader(content))
	require.NoError(t, err)
	return dt
}

func TestMarshal_KnownBytes(t *testing.T) {
	dt := newDetached(t, "")
	dt.Timestamp.AddAttestation(proof.Bitcoin(1))

	got, err := Marshal(dt)
	require.NoError(t, err)

	digest := sha256.Sum256(nil)
	var want bytes.Buffer
	want.Write(Magic)
	want.WriteByte(0x01) // major version
	want.WriteByte(0x08) // sha256
	want.Write(digest[:])
	want.WriteByte(0x00)
	want.Write(proof.BitcoinTag[:])
	want.Write([]byte{0x01, 0x01})

	assert.Equal(t, want.Bytes(), got)
}

func TestRoundTrip(t *testing.T) {
	dt := newDetached(t, "hello world\n")
	root := dt.Timestamp
	opaque, err := proof.Unknown([]byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte("opaque"))
	require.NoError(t, err)
	root.AddAttestation(opaque)

	nonce := root.AddOp(proof.Append([]byte("nonce-bytes")))
	h := nonce.AddOp(proof.SHA256())
	cal := h.AddOp(proof.Prepend([]byte{0xde, 0xad}))
	cal.AddAttestation(proof.Pending("https://alice.btc.calendar.opentimestamps.org"))
	cal.AddAttestation(proof.Pending("https://bob.btc.calendar.opentimestamps.org"))
	leaf := cal.AddOp(proof.SHA256()).AddOp(proof.Reverse()).AddOp(proof.RIPEMD160())
	leaf.AddAttestation(proof.Bitcoin(428648))
	h.AddOp(proof.Keccak256()).AddOp(proof.Hexlify()).AddAttestation(proof.Litecoin(1200000))
	h.AddOp(proof.SHA1()).AddAttestation(proof.Bitcoin(1 << 40))

	data, err := Marshal(dt)
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, dt.FileHashOp, back.FileHashOp)
	assert.True(t, proof.Equal(dt.Timestamp, back.Timestamp),
		"want:\n%s\ngot:\n%s", proof.FormatTree(dt.Timestamp, true), proof.FormatTree(back.Timestamp, true))

	// edge order survives as well
	bh, _ := back.Timestamp.Child(proof.Append([]byte("nonce-bytes")))
	bh, _ = bh.Child(proof.SHA256())
	assert.Equal(t, h.Ops(), bh.Ops())

	again, err := Marshal(back)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestRoundTrip_EmptyNodes(t *testing.T) {
	dt := newDetached(t, "x")
	data, err := Marshal(dt)
	require.NoError(t, err)
	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, proof.Equal(dt.Timestamp, back.Timestamp))

	// a dead branch also survives
	dt.Timestamp.AddOp(proof.SHA256()).AddOp(proof.Append([]byte{1}))
	dt.Timestamp.AddAttestation(proof.Pending("https://c.example"))
	data, err = Marshal(dt)
	require.NoError(t, err)
	back, err = Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, proof.Equal(dt.Timestamp, back.Timestamp))
}

func TestUnmarshal_Errors(t *testing.T) {
	dt := newDetached(t, "abc")
	dt.Timestamp.AddAttestation(proof.Bitcoin(5))
	good, err := Marshal(dt)
	require.NoError(t, err)

	_, err = Unmarshal(append([]byte("garbage"), good[7:]...))
	assert.ErrorIs(t, err, ErrBadMagic)

	_, err = Unmarshal(append(good, 0x00))
	assert.ErrorIs(t, err, ErrTrailingData)

	_, err = Unmarshal(good[:len(good)-1])
	assert.Error(t, err)

	bad := bytes.Clone(good)
	bad[len(Magic)] = 0x02
	_, err = Unmarshal(bad)
	assert.ErrorIs(t, err, ErrVersion)
}

func TestDecodeTimestamp_UnknownOp(t *testing.T) {
	_, err := DecodeTimestamp(bytes.NewReader([]byte{0x42}), []byte("m"))
	assert.Error(t, err)
}

func TestDecodeTimestamp_TooDeep(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i <= MaxDepth+1; i++ {
		buf.WriteByte(byte(proof.OpReverse))
	}
	buf.WriteByte(emptyMarker)
	_, err := DecodeTimestamp(&buf, []byte("m"))
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestDecodeTimestamp_DuplicateOp(t *testing.T) {
	data := []byte{
		forkMarker, byte(proof.OpSHA256), emptyMarker,
		byte(proof.OpSHA256), emptyMarker,
	}
	_, err := DecodeTimestamp(bytes.NewReader(data), []byte("m"))
	assert.Error(t, err)
}

func TestEncode_RejectsBadPendingURI(t *testing.T) {
	dt := newDetached(t, "abc")
	dt.Timestamp.AddAttestation(proof.Pending("not a uri\n"))
	_, err := Marshal(dt)
	assert.Error(t, err)
}

func TestEncodeTimestamp_RoundTrip(t *testing.T) {
	root := proof.New([]byte("digest"))
	root.AddOp(proof.Append([]byte{1})).AddAttestation(proof.Bitcoin(3))
	root.AddOp(proof.Append([]byte{2})).AddAttestation(proof.Pending("https://x.example"))

	var buf bytes.Buffer
	require.NoError(t, EncodeTimestamp(&buf, root))
	back, err := DecodeTimestamp(&buf, []byte("digest"))
	require.NoError(t, err)
	assert.True(t, proof.Equal(root, back))
}

func TestEncodeTimestamp_RejectsWhatDecodeWouldRefuse(t *testing.T) {
	tests := []struct {
		name  string
		build func(root *proof.Timestamp)
	}{
		{"height above 2^63-1", func(root *proof.Timestamp) {
			root.AddOp(proof.SHA256()).AddAttestation(proof.Bitcoin(proof.MaxHeight + 1))
		}},
		{"empty append", func(root *proof.Timestamp) {
			root.AddOp(proof.Append(nil)).AddAttestation(proof.Bitcoin(1))
		}},
		{"oversized prepend", func(root *proof.Timestamp) {
			root.AddOp(proof.Prepend(make([]byte, proof.MaxOpArgLength+1)))
		}},
		{"msg too long", func(root *proof.Timestamp) {
			root.AddOp(proof.Append(make([]byte, 4000))).AddOp(proof.Append(make([]byte, 200)))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := proof.New([]byte("digest"))
			tt.build(root)
			var buf bytes.Buffer
			assert.Error(t, EncodeTimestamp(&buf, root))
		})
	}
}

func TestEncodeTimestamp_LimitsRoundTrip(t *testing.T) {
	root := proof.New([]byte("digest"))
	root.AddOp(proof.SHA256()).AddAttestation(proof.Bitcoin(proof.MaxHeight))
	root.AddOp(proof.Append(make([]byte, proof.MaxOpArgLength-len("digest"))))

	var buf bytes.Buffer
	require.NoError(t, EncodeTimestamp(&buf, root))
	back, err := DecodeTimestamp(&buf, []byte("digest"))
	require.NoError(t, err)
	assert.True(t, proof.Equal(root, back))
}

func TestDecodeTimestamp_LongResultErrorIsShort(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(proof.OpAppend))
	buf.Write([]byte{0x80, 0x20}) // 4096
	buf.Write(bytes.Repeat([]byte{0xab}, proof.MaxOpArgLength))
	buf.WriteByte(emptyMarker)

	_, err := DecodeTimestamp(&buf, []byte("m"))
	require.ErrorIs(t, err, ErrLengthExceeded)
	assert.Less(t, len(err.Error()), 200)
}

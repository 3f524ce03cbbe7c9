package proof

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpApply_HashVectors(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{SHA1(), "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{SHA256(), "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{RIPEMD160(), "9c1185a5c5e9fc54612808977ee8f548b2258d31"},
		{Keccak256(), "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
	}
	for _, tt := range tests {
		got := tt.op.Apply(nil)
		assert.Equal(t, tt.want, hex.EncodeToString(got), tt.op.String())
	}
}

func TestOpApply_ByteOps(t *testing.T) {
	msg := []byte{0x01, 0x02}

	assert.Equal(t, []byte{0x01, 0x02, 0xff}, Append([]byte{0xff}).Apply(msg))
	assert.Equal(t, []byte{0xff, 0x01, 0x02}, Prepend([]byte{0xff}).Apply(msg))
	assert.Equal(t, []byte{0x02, 0x01}, Reverse().Apply(msg))
	assert.Equal(t, []byte("0102"), Hexlify().Apply(msg))

	// input is never modified
	assert.Equal(t, []byte{0x01, 0x02}, msg)
}

func TestOp_Equality(t *testing.T) {
	assert.True(t, Append([]byte{1}) == Append([]byte{1}))
	assert.False(t, Append([]byte{1}) == Prepend([]byte{1}))
	assert.False(t, Append([]byte{1}) == Append([]byte{2}))
	assert.True(t, SHA256() == SHA256())
}

func TestNewOp(t *testing.T) {
	op, err := NewOp(OpAppend, []byte{0xaa})
	require.NoError(t, err)
	assert.Equal(t, Append([]byte{0xaa}), op)

	_, err = NewOp(OpAppend, nil)
	assert.Error(t, err)

	_, err = NewOp(OpSHA256, []byte{1})
	assert.Error(t, err)

	_, err = NewOp(OpKind(0x42), nil)
	assert.Error(t, err)

	_, err = NewOp(OpPrepend, make([]byte, MaxOpArgLength+1))
	assert.Error(t, err)
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "append 0102", Append([]byte{1, 2}).String())
	assert.Equal(t, "sha256", SHA256().String())
	assert.Equal(t, "op(0x42)", OpKind(0x42).String())
}

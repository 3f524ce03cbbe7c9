package proof

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// OpKind identifies an operation variant. The values are the one-byte tags
// used by the proof file format.
type OpKind byte

const (
	OpSHA1      OpKind = 0x02
	OpRIPEMD160 OpKind = 0x03
	OpSHA256    OpKind = 0x08
	OpKeccak256 OpKind = 0x67
	OpAppend    OpKind = 0xf0
	OpPrepend   OpKind = 0xf1
	OpReverse   OpKind = 0xf2
	OpHexlify   OpKind = 0xf3
)

// MaxOpArgLength bounds the argument of Append and Prepend.
const MaxOpArgLength = 4096

var opNames = map[OpKind]string{
	OpSHA1:      "sha1",
	OpRIPEMD160: "ripemd160",
	OpSHA256:    "sha256",
	OpKeccak256: "keccak256",
	OpAppend:    "append",
	OpPrepend:   "prepend",
	OpReverse:   "reverse",
	OpHexlify:   "hexlify",
}

func (k OpKind) String() string {
	if name, ok := opNames[k]; ok {
		return name
	}
	return fmt.Sprintf("op(0x%02x)", byte(k))
}

// Known reports whether k is one of the defined operation variants.
func (k OpKind) Known() bool {
	_, ok := opNames[k]
	return ok
}

// Binary reports whether the operation carries an argument.
func (k OpKind) Binary() bool {
	return k == OpAppend || k == OpPrepend
}

// Op is an edge label: a pure byte transform. Op values are comparable and
// two ops are the same edge label iff they are ==.
type Op struct {
	kind OpKind
	arg  string
}

func Append(arg []byte) Op  { return Op{kind: OpAppend, arg: string(arg)} }
func Prepend(arg []byte) Op { return Op{kind: OpPrepend, arg: string(arg)} }
func Reverse() Op           { return Op{kind: OpReverse} }
func Hexlify() Op           { return Op{kind: OpHexlify} }
func SHA1() Op              { return Op{kind: OpSHA1} }
func RIPEMD160() Op         { return Op{kind: OpRIPEMD160} }
func SHA256() Op            { return Op{kind: OpSHA256} }
func Keccak256() Op         { return Op{kind: OpKeccak256} }

// NewOp builds an op from its tag and argument. The argument must be empty
// for unary ops and non-empty for binary ops.
func NewOp(kind OpKind, arg []byte) (Op, error) {
	if !kind.Known() {
		return Op{}, fmt.Errorf("unknown op tag 0x%02x", byte(kind))
	}
	if kind.Binary() {
		if len(arg) == 0 || len(arg) > MaxOpArgLength {
			return Op{}, fmt.Errorf("%s: argument length %d out of range", kind, len(arg))
		}
		return Op{kind: kind, arg: string(arg)}, nil
	}
	if len(arg) != 0 {
		return Op{}, fmt.Errorf("%s: unexpected argument", kind)
	}
	return Op{kind: kind}, nil
}

// Validate reports whether o is an op NewOp would build. Append and Prepend
// accept any argument, so ops built from them are checked here.
func (o Op) Validate() error {
	_, err := NewOp(o.kind, o.Arg())
	return err
}

// Kind returns the op variant.
func (o Op) Kind() OpKind { return o.kind }

// Arg returns a copy of the op argument, nil for unary ops.
func (o Op) Arg() []byte {
	if o.arg == "" {
		return nil
	}
	return []byte(o.arg)
}

// Apply runs the transform. It never mutates msg.
func (o Op) Apply(msg []byte) []byte {
	switch o.kind {
	case OpAppend:
		out := make([]byte, 0, len(msg)+len(o.arg))
		out = append(out, msg...)
		return append(out, o.arg...)
	case OpPrepend:
		out := make([]byte, 0, len(msg)+len(o.arg))
		out = append(out, o.arg...)
		return append(out, msg...)
	case OpReverse:
		out := make([]byte, len(msg))
		for i, b := range msg {
			out[len(msg)-1-i] = b
		}
		return out
	case OpHexlify:
		return []byte(hex.EncodeToString(msg))
	case OpSHA1:
		sum := sha1.Sum(msg)
		return sum[:]
	case OpRIPEMD160:
		h := ripemd160.New()
		h.Write(msg)
		return h.Sum(nil)
	case OpSHA256:
		sum := sha256.Sum256(msg)
		return sum[:]
	case OpKeccak256:
		h := sha3.NewLegacyKeccak256()
		h.Write(msg)
		return h.Sum(nil)
	}
	// The zero Op is the identity.
	out := make([]byte, len(msg))
	copy(out, msg)
	return out
}

func (o Op) String() string {
	if o.kind.Binary() {
		return o.kind.String() + " " + hex.EncodeToString([]byte(o.arg))
	}
	return o.kind.String()
}

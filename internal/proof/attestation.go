package proof

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// TagSize is the length of an attestation tag in the proof file format.
const TagSize = 8

// MaxPendingURILength bounds the URI carried by a pending attestation.
const MaxPendingURILength = 1000

// MaxHeight is the largest block height a proof file can carry.
const MaxHeight = 1<<63 - 1

// Kind is an attestation class. Ranking only ever compares attestations of
// the same Kind.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindPending
	KindBitcoin
	KindLitecoin
)

var (
	BitcoinTag  = [TagSize]byte{0x05, 0x88, 0x96, 0x0d, 0x73, 0xd7, 0x19, 0x01}
	LitecoinTag = [TagSize]byte{0x06, 0x86, 0x9a, 0x0d, 0x73, 0xd7, 0x1b, 0x45}
	PendingTag  = [TagSize]byte{0x83, 0xdf, 0xe3, 0x0d, 0x2e, 0xf9, 0x0c, 0x8e}
)

func (k Kind) String() string {
	switch k {
	case KindPending:
		return "pending"
	case KindBitcoin:
		return "bitcoin"
	case KindLitecoin:
		return "litecoin"
	default:
		return "unknown"
	}
}

// Rankable reports whether attestations of this class carry a block height.
func (k Kind) Rankable() bool {
	return k == KindBitcoin || k == KindLitecoin
}

// ParseKind maps a class name as printed by Kind.String back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "pending":
		return KindPending, nil
	case "bitcoin", "btc":
		return KindBitcoin, nil
	case "litecoin", "ltc":
		return KindLitecoin, nil
	case "unknown":
		return KindUnknown, nil
	}
	return KindUnknown, fmt.Errorf("unknown attestation class %q", s)
}

// RankableKinds lists every class that has a rank, in a fixed order.
var RankableKinds = []Kind{KindBitcoin, KindLitecoin}

// Attestation is a claim anchoring a node's msg to an external fact. The
// struct is comparable: two attestations are equal iff ==.
type Attestation struct {
	kind    Kind
	uri     string
	height  uint64
	tag     [TagSize]byte
	payload string
}

// Pending claims a calendar at uri will later supply a complete proof.
func Pending(uri string) Attestation {
	return Attestation{kind: KindPending, uri: uri}
}

// Bitcoin claims msg is the merkle root of the Bitcoin block at height.
func Bitcoin(height uint64) Attestation {
	return Attestation{kind: KindBitcoin, height: height}
}

// Litecoin claims msg is the merkle root of the Litecoin block at height.
func Litecoin(height uint64) Attestation {
	return Attestation{kind: KindLitecoin, height: height}
}

// Unknown keeps an attestation this package cannot interpret. The tag must
// be TagSize bytes and must not belong to a known class.
func Unknown(tag []byte, payload []byte) (Attestation, error) {
	a := Attestation{kind: KindUnknown, payload: string(payload)}
	if len(tag) != TagSize {
		return a, fmt.Errorf("proof: attestation tag must be %d bytes, got %d", TagSize, len(tag))
	}
	copy(a.tag[:], tag)
	switch a.tag {
	case BitcoinTag, LitecoinTag, PendingTag:
		return a, fmt.Errorf("proof: tag %x belongs to a known attestation class", tag)
	}
	return a, nil
}

func (a Attestation) Kind() Kind { return a.kind }

// URI is the calendar URI of a pending attestation.
func (a Attestation) URI() string { return a.uri }

// Height is the block height of a blockchain attestation.
func (a Attestation) Height() uint64 { return a.height }

// Tag returns the 8-byte wire tag for the attestation.
func (a Attestation) Tag() [TagSize]byte {
	switch a.kind {
	case KindPending:
		return PendingTag
	case KindBitcoin:
		return BitcoinTag
	case KindLitecoin:
		return LitecoinTag
	}
	return a.tag
}

// Payload returns the opaque payload of an unknown attestation.
func (a Attestation) Payload() []byte { return []byte(a.payload) }

// Rankable reports whether a can be compared by AtLeastAsGood.
func (a Attestation) Rankable() bool { return a.kind.Rankable() }

// AtLeastAsGood reports whether a is ranked no worse than b. Both must be
// of the same rankable class; a lower height is a stronger claim.
func (a Attestation) AtLeastAsGood(b Attestation) bool {
	return a.height <= b.height
}

func (a Attestation) String() string {
	switch a.kind {
	case KindPending:
		return fmt.Sprintf("PendingAttestation(%q)", a.uri)
	case KindBitcoin:
		return fmt.Sprintf("BitcoinBlockHeaderAttestation(%d)", a.height)
	case KindLitecoin:
		return fmt.Sprintf("LitecoinBlockHeaderAttestation(%d)", a.height)
	}
	return fmt.Sprintf("UnknownAttestation(%s, %s)", hex.EncodeToString(a.tag[:]), hex.EncodeToString([]byte(a.payload)))
}

// compareAttestations gives a total order used for deterministic output.
func compareAttestations(a, b Attestation) int {
	at, bt := a.Tag(), b.Tag()
	if c := bytes.Compare(at[:], bt[:]); c != 0 {
		return c
	}
	switch {
	case a.height < b.height:
		return -1
	case a.height > b.height:
		return 1
	}
	if c := strings.Compare(a.uri, b.uri); c != 0 {
		return c
	}
	return strings.Compare(a.payload, b.payload)
}

// ValidPendingURI reports whether uri may be carried by a pending
// attestation in a proof file.
func ValidPendingURI(uri string) bool {
	if len(uri) > MaxPendingURILength {
		return false
	}
	for _, r := range uri {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("._/:-", r):
		default:
			return false
		}
	}
	return true
}

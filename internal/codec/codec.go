// Package codec reads and writes proof files.
//
// A proof file starts with a fixed magic header, a major version, the hash
// op used on the stamped file and the file digest, followed by the proof
// tree. In the tree every node is a list of items (attestations and edges);
// each item except the last is preceded by 0xff. An attestation item is
// 0x00, an 8-byte tag and a length-prefixed payload. An edge item is the op
// tag, its length-prefixed argument for binary ops, and the child node. A
// node without items is written as the single byte 0x01.
package codec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"

	"github.com/systemshift/stampdag/internal/proof"
)

const (
	MajorVersion = 1

	// MaxMsgLength bounds the msg of any node reached while decoding.
	MaxMsgLength = 4096
	// MaxPayloadLength bounds an attestation payload.
	MaxPayloadLength = 8192
	// MaxDepth bounds the nesting of the proof tree.
	MaxDepth = 256

	forkMarker        = 0xff
	attestationMarker = 0x00
	emptyMarker       = 0x01
)

// Magic identifies a proof file.
var Magic = []byte("\x00OpenTimestamps\x00\x00Proof\x00\xbf\x89\xe2\xe8\x84\xe8\x92\x94")

var (
	ErrBadMagic       = errors.New("codec: not a timestamp proof file")
	ErrVersion        = errors.New("codec: unsupported major version")
	ErrTrailingData   = errors.New("codec: trailing data")
	ErrTooDeep        = errors.New("codec: proof nested too deeply")
	ErrLengthExceeded = errors.New("codec: length limit exceeded")
)

// Marshal serializes a detached proof.
func Marshal(dt *proof.DetachedTimestamp) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, dt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a detached proof and rejects trailing bytes.
func Unmarshal(data []byte) (*proof.DetachedTimestamp, error) {
	r := bytes.NewReader(data)
	dt, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, ErrTrailingData
	}
	return dt, nil
}

// Encode writes a detached proof to w.
func Encode(w io.Writer, dt *proof.DetachedTimestamp) error {
	size, err := proof.DigestSize(dt.FileHashOp.Kind())
	if err != nil {
		return fmt.Errorf("file hash op: %w", err)
	}
	digest := dt.Digest()
	if len(digest) != size {
		return fmt.Errorf("digest length %d does not match %s", len(digest), dt.FileHashOp)
	}

	bw := bufio.NewWriter(w)
	bw.Write(Magic)
	bw.Write(varint.ToUvarint(MajorVersion))
	bw.WriteByte(byte(dt.FileHashOp.Kind()))
	bw.Write(digest)
	if err := encodeNode(bw, dt.Timestamp); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode reads a detached proof from r.
func Decode(r io.Reader) (*proof.DetachedTimestamp, error) {
	br := byteReader(r)

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if !bytes.Equal(magic, Magic) {
		return nil, ErrBadMagic
	}

	version, err := varint.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != MajorVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, version)
	}

	tag, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read file hash op: %w", err)
	}
	fileOp, err := proof.NewOp(proof.OpKind(tag), nil)
	if err != nil {
		return nil, fmt.Errorf("file hash op: %w", err)
	}
	size, err := proof.DigestSize(fileOp.Kind())
	if err != nil {
		return nil, fmt.Errorf("file hash op: %w", err)
	}
	digest := make([]byte, size)
	if _, err := io.ReadFull(br, digest); err != nil {
		return nil, fmt.Errorf("read digest: %w", err)
	}

	ts, err := decodeNode(br, digest, 0)
	if err != nil {
		return nil, err
	}
	return &proof.DetachedTimestamp{FileHashOp: fileOp, Timestamp: ts}, nil
}

// EncodeTimestamp writes a bare proof tree without the file header.
func EncodeTimestamp(w io.Writer, ts *proof.Timestamp) error {
	bw := bufio.NewWriter(w)
	if err := encodeNode(bw, ts); err != nil {
		return err
	}
	return bw.Flush()
}

// DecodeTimestamp reads a bare proof tree whose root holds msg.
func DecodeTimestamp(r io.Reader, msg []byte) (*proof.Timestamp, error) {
	return decodeNode(byteReader(r), msg, 0)
}

type reader interface {
	io.Reader
	io.ByteReader
}

func byteReader(r io.Reader) reader {
	if br, ok := r.(reader); ok {
		return br
	}
	return bufio.NewReader(r)
}

package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"

	"github.com/systemshift/stampdag/internal/proof"
)

func writeVarbytes(w *bufio.Writer, b []byte) {
	w.Write(varint.ToUvarint(uint64(len(b))))
	w.Write(b)
}

func readVarbytes(r reader, max int) ([]byte, error) {
	n, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	if n > uint64(max) {
		return nil, fmt.Errorf("%w: %d > %d", ErrLengthExceeded, n, max)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("read bytes: %w", err)
	}
	return b, nil
}

func encodeNode(w *bufio.Writer, ts *proof.Timestamp) error {
	if n := len(ts.Msg()); n > MaxMsgLength {
		return fmt.Errorf("node msg of %d bytes: %w", n, ErrLengthExceeded)
	}
	atts := ts.Attestations()
	edges := ts.Edges()
	total := len(atts) + len(edges)
	if total == 0 {
		w.WriteByte(emptyMarker)
		return nil
	}

	i := 0
	fork := func() {
		if i < total-1 {
			w.WriteByte(forkMarker)
		}
		i++
	}
	for _, a := range atts {
		fork()
		if err := encodeAttestation(w, a); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if err := e.Op.Validate(); err != nil {
			return err
		}
		fork()
		w.WriteByte(byte(e.Op.Kind()))
		if e.Op.Kind().Binary() {
			writeVarbytes(w, e.Op.Arg())
		}
		if err := encodeNode(w, e.Child); err != nil {
			return err
		}
	}
	return nil
}

func encodeAttestation(w *bufio.Writer, a proof.Attestation) error {
	var payload []byte
	switch a.Kind() {
	case proof.KindPending:
		if !proof.ValidPendingURI(a.URI()) {
			return fmt.Errorf("pending attestation: invalid uri %q", a.URI())
		}
		var buf bytes.Buffer
		buf.Write(varint.ToUvarint(uint64(len(a.URI()))))
		buf.WriteString(a.URI())
		payload = buf.Bytes()
	case proof.KindBitcoin, proof.KindLitecoin:
		if a.Height() > proof.MaxHeight {
			return fmt.Errorf("%s: height out of range", a)
		}
		payload = varint.ToUvarint(a.Height())
	default:
		tag := a.Tag()
		if _, err := proof.Unknown(tag[:], nil); err != nil {
			return err
		}
		payload = a.Payload()
	}
	if len(payload) > MaxPayloadLength {
		return fmt.Errorf("%s: %w", a, ErrLengthExceeded)
	}
	tag := a.Tag()
	w.WriteByte(attestationMarker)
	w.Write(tag[:])
	writeVarbytes(w, payload)
	return nil
}

func decodeNode(r reader, msg []byte, depth int) (*proof.Timestamp, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	ts := proof.New(msg)

	first := true
	for {
		tag, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("read item: %w", err)
		}
		more := tag == forkMarker
		if more {
			if tag, err = r.ReadByte(); err != nil {
				return nil, fmt.Errorf("read item: %w", err)
			}
		}

		switch tag {
		case emptyMarker:
			if !first || more {
				return nil, fmt.Errorf("unexpected empty marker")
			}
			return ts, nil
		case attestationMarker:
			a, err := decodeAttestation(r)
			if err != nil {
				return nil, err
			}
			ts.AddAttestation(a)
		default:
			if err := decodeEdge(r, ts, proof.OpKind(tag), depth); err != nil {
				return nil, err
			}
		}

		first = false
		if !more {
			return ts, nil
		}
	}
}

func decodeEdge(r reader, ts *proof.Timestamp, kind proof.OpKind, depth int) error {
	if !kind.Known() {
		return fmt.Errorf("unknown op tag 0x%02x", byte(kind))
	}
	var arg []byte
	if kind.Binary() {
		var err error
		if arg, err = readVarbytes(r, proof.MaxOpArgLength); err != nil {
			return fmt.Errorf("%s argument: %w", kind, err)
		}
	}
	op, err := proof.NewOp(kind, arg)
	if err != nil {
		return err
	}
	if _, exists := ts.Child(op); exists {
		return fmt.Errorf("duplicate op %s", op)
	}

	childMsg := op.Apply(ts.Msg())
	if len(childMsg) > MaxMsgLength {
		return fmt.Errorf("%s result: %w", kind, ErrLengthExceeded)
	}
	child, err := decodeNode(r, childMsg, depth+1)
	if err != nil {
		return err
	}
	return ts.AddEdge(op, child)
}

func decodeAttestation(r reader) (proof.Attestation, error) {
	var tag [proof.TagSize]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return proof.Attestation{}, fmt.Errorf("read attestation tag: %w", err)
	}
	payload, err := readVarbytes(r, MaxPayloadLength)
	if err != nil {
		return proof.Attestation{}, fmt.Errorf("attestation payload: %w", err)
	}
	pr := bytes.NewReader(payload)

	var a proof.Attestation
	switch tag {
	case proof.PendingTag:
		uri, err := readVarbytes(pr, proof.MaxPendingURILength)
		if err != nil {
			return a, fmt.Errorf("pending uri: %w", err)
		}
		if !proof.ValidPendingURI(string(uri)) {
			return a, fmt.Errorf("pending attestation: invalid uri %q", uri)
		}
		a = proof.Pending(string(uri))
	case proof.BitcoinTag, proof.LitecoinTag:
		height, err := varint.ReadUvarint(pr)
		if err != nil {
			return a, fmt.Errorf("block height: %w", err)
		}
		if tag == proof.BitcoinTag {
			a = proof.Bitcoin(height)
		} else {
			a = proof.Litecoin(height)
		}
	default:
		return proof.Unknown(tag[:], payload)
	}
	if pr.Len() != 0 {
		return a, fmt.Errorf("%s: %w", a, ErrTrailingData)
	}
	return a, nil
}

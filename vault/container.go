package vault

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// magic(4) version(1) algo(1) iterations(4) time(4) memory(4) threads(1) nonceLen(1)
const fixedHeaderLen = 4 + 1 + 1 + 4 + 4 + 4 + 1 + 1

func encodeHeader(h fileHeader) ([]byte, error) {
	buf := &bytes.Buffer{}

	// Magic
	if _, err := buf.WriteString(Magic); err != nil {
		return nil, err
	}

	// Version
	if err := buf.WriteByte(Version); err != nil {
		return nil, err
	}

	// KDF
	if err := buf.WriteByte(uint8(h.KDF.Algo)); err != nil {
		return nil, err
	}
	for _, v := range []uint32{h.KDF.Iterations, h.KDF.Time, h.KDF.Memory} {
		if err := binary.Write(buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}
	if err := buf.WriteByte(h.KDF.Threads); err != nil {
		return nil, err
	}

	// Nonce
	if len(h.Nonce) != NonceLen {
		return nil, fmt.Errorf("vault: nonce must be %d bytes, got %d", NonceLen, len(h.Nonce))
	}
	if err := buf.WriteByte(uint8(len(h.Nonce))); err != nil {
		return nil, err
	}
	if _, err := buf.Write(h.Nonce); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// decodeContainer splits a raw vault.enc into its header, the header bytes
// (used as associated data) and the sealed payload. Every structural problem
// is an ErrFormat; authenticity is checked later by Open.
func decodeContainer(raw []byte) (fileHeader, []byte, Sealed, error) {
	var h fileHeader
	if len(raw) < fixedHeaderLen+NonceLen+TagLen {
		return h, nil, Sealed{}, fmt.Errorf("%w: container truncated (%d bytes)", ErrFormat, len(raw))
	}

	r := bytes.NewReader(raw)

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return h, nil, Sealed{}, fmt.Errorf("%w: magic: %v", ErrFormat, err)
	}
	if string(magic) != Magic {
		return h, nil, Sealed{}, fmt.Errorf("%w: bad magic %q", ErrFormat, magic)
	}

	var version, algo, nonceLen uint8
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return h, nil, Sealed{}, fmt.Errorf("%w: version: %v", ErrFormat, err)
	}
	if version != Version {
		return h, nil, Sealed{}, fmt.Errorf("%w: unsupported version %d", ErrFormat, version)
	}

	if err := binary.Read(r, binary.BigEndian, &algo); err != nil {
		return h, nil, Sealed{}, fmt.Errorf("%w: kdf: %v", ErrFormat, err)
	}
	h.KDF.Algo = KDFAlgo(algo)
	for _, v := range []*uint32{&h.KDF.Iterations, &h.KDF.Time, &h.KDF.Memory} {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return h, nil, Sealed{}, fmt.Errorf("%w: kdf: %v", ErrFormat, err)
		}
	}
	if err := binary.Read(r, binary.BigEndian, &h.KDF.Threads); err != nil {
		return h, nil, Sealed{}, fmt.Errorf("%w: kdf: %v", ErrFormat, err)
	}
	if err := h.KDF.Validate(); err != nil {
		return h, nil, Sealed{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	if err := binary.Read(r, binary.BigEndian, &nonceLen); err != nil {
		return h, nil, Sealed{}, fmt.Errorf("%w: nonce: %v", ErrFormat, err)
	}
	if nonceLen != NonceLen {
		return h, nil, Sealed{}, fmt.Errorf("%w: nonce length %d", ErrFormat, nonceLen)
	}
	h.Nonce = make([]byte, nonceLen)
	if _, err := io.ReadFull(r, h.Nonce); err != nil {
		return h, nil, Sealed{}, fmt.Errorf("%w: nonce: %v", ErrFormat, err)
	}

	headerLen := len(raw) - r.Len()
	body := raw[headerLen:]
	split := len(body) - TagLen
	s := Sealed{
		Nonce:      h.Nonce,
		Ciphertext: body[:split],
		Tag:        body[split:],
	}
	return h, raw[:headerLen], s, nil
}

// encodeContainer lays out header || ciphertext || tag.
func encodeContainer(header []byte, s Sealed) []byte {
	raw := make([]byte, 0, len(header)+len(s.Ciphertext)+len(s.Tag))
	raw = append(raw, header...)
	raw = append(raw, s.Ciphertext...)
	return append(raw, s.Tag...)
}

func checkSalt(salt []byte) error {
	if len(salt) != SaltLen {
		return fmt.Errorf("%w: salt must be %d bytes, got %d", ErrFormat, SaltLen, len(salt))
	}
	return nil
}

package tracestr

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"errors"
	"io"
)

// payloadCap is the fixed capacity of both the compression and the base64
// staging buffers. A panic message whose compressed form does not fit is
// rejected outright; the format never truncates.
const payloadCap = 2048

// ErrNoSpace reports a payload that does not fit the fixed staging buffers.
var ErrNoSpace = errors.New("tracestr: compressed payload exceeds buffer")

// cappedBuffer is an io.Writer over a fixed-size array that fails instead of
// growing.
type cappedBuffer struct {
	buf [payloadCap]byte
	n   int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if len(p) > payloadCap-b.n {
		return 0, ErrNoSpace
	}
	copy(b.buf[b.n:], p)
	b.n += len(p)
	return len(p), nil
}

func (b *cappedBuffer) bytes() []byte { return b.buf[:b.n] }

// compressPayload deflates msg at maximum compression and base64-encodes the
// result without padding, appending the characters to dst. Returns ErrNoSpace
// when either staging buffer would overflow.
func compressPayload(dst []byte, msg []byte) ([]byte, error) {
	var staged cappedBuffer
	zw, err := flate.NewWriter(&staged, flate.BestCompression)
	if err != nil {
		return dst, err
	}
	if _, err := zw.Write(msg); err != nil {
		return dst, err
	}
	if err := zw.Close(); err != nil {
		return dst, err
	}

	enc := base64.StdEncoding
	if enc.EncodedLen(staged.n) > payloadCap {
		return dst, ErrNoSpace
	}
	var b64 [payloadCap]byte
	enc.Encode(b64[:], staged.bytes())
	out := b64[:enc.EncodedLen(staged.n)]
	// The wire format carries no padding.
	for len(out) > 0 && out[len(out)-1] == '=' {
		out = out[:len(out)-1]
	}
	return append(dst, out...), nil
}

// decompressPayload reverses compressPayload: base64 (padding optional) then
// inflate. Used by the decoder and by tests; the encoder never calls it.
func decompressPayload(payload []byte) ([]byte, error) {
	raw, err := base64.RawStdEncoding.DecodeString(string(payload))
	if err != nil {
		return nil, err
	}
	zr := flate.NewReader(bytes.NewReader(raw))
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, 1<<20))
}

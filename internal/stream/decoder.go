package stream

import (
	"errors"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const byteOrderMark = "\uFEFF"

// Decoder turns a sequence of byte chunks into text. An incomplete multi-byte sequence at the end of
// a chunk is held back and completed by the following chunk, so a character split across chunk
// boundaries is never emitted as replacement characters. Invalid bytes decode to U+FFFD and a leading
// byte order mark is dropped.
//
// A Decoder belongs to a single stream; it is not safe for concurrent use.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	started bool
}

// NewDecoder returns a UTF-8 Decoder with no carried state.
func NewDecoder() *Decoder {
	return &Decoder{t: unicode.UTF8.NewDecoder()}
}

// Decode decodes chunk together with any bytes carried over from the previous call. Trailing bytes
// that may start a multi-byte character are kept for the next call.
func (d *Decoder) Decode(chunk []byte) string {
	return d.decode(chunk, false)
}

// Flush decodes whatever is still carried over and resets the decoder. A truncated character becomes
// a single U+FFFD.
func (d *Decoder) Flush() string {
	s := d.decode(nil, true)
	d.t.Reset()
	d.pending = nil
	d.started = false
	return s
}

// Pending reports how many bytes are carried over to the next call.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

func (d *Decoder) decode(chunk []byte, atEOF bool) string {
	src := chunk
	if len(d.pending) > 0 {
		src = make([]byte, 0, len(d.pending)+len(chunk))
		src = append(src, d.pending...)
		src = append(src, chunk...)
	}
	if len(src) == 0 {
		return ""
	}

	// An invalid byte grows to the three bytes of U+FFFD, nothing grows more.
	dst := make([]byte, 3*len(src))
	nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
	switch {
	case err == nil:
		d.pending = d.pending[:0]
	case errors.Is(err, transform.ErrShortSrc):
		d.pending = append(d.pending[:0:0], src[nSrc:]...)
	default:
		// The UTF-8 transformer only reports ErrShortSrc; anything else means the rest is unusable.
		d.pending = d.pending[:0]
	}

	text := string(dst[:nDst])
	if !d.started && text != "" {
		d.started = true
		text = strings.TrimPrefix(text, byteOrderMark)
	}
	return text
}

package chat

import (
	"bytes"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

var dataPrefix = []byte("data:")

// DeltaDecoder reconstructs assistant text from a line-oriented event stream
// where each event line is `data: {"delta":"..."}`. Chunks may split lines at
// any byte; the partial tail is carried to the next Feed. Lines that do not
// carry a string delta are dropped without error.
type DeltaDecoder struct {
	pending []byte
}

// Feed consumes chunk and returns the deltas of every line it completed.
func (d *DeltaDecoder) Feed(chunk []byte) []string {
	d.pending = append(d.pending, chunk...)

	var out []string
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		if delta, ok := ParseLine(d.pending[:i]); ok {
			out = append(out, delta)
		}
		d.pending = d.pending[i+1:]
	}
	if len(d.pending) == 0 {
		d.pending = nil
	}
	return out
}

// Flush parses any unterminated final line and resets the decoder.
func (d *DeltaDecoder) Flush() []string {
	line := d.pending
	d.pending = nil
	if delta, ok := ParseLine(line); ok {
		return []string{delta}
	}
	return nil
}

// ParseLine extracts the delta from one event line.
func ParseLine(line []byte) (string, bool) {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, dataPrefix) {
		return "", false
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 {
		return "", false
	}

	var (
		delta string
		found bool
	)
	if err := jx.DecodeBytes(payload).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "delta" || d.Next() != jx.String {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		delta, found = s, true
		return nil
	}); err != nil {
		return "", false
	}
	return delta, found
}

// ReadReply drains r through a DeltaDecoder and returns the concatenated
// deltas. Text decoded before a read error is returned with the error.
func ReadReply(r io.Reader) (string, error) {
	var (
		dec   DeltaDecoder
		reply bytes.Buffer
		buf   = make([]byte, 4096)
	)
	for {
		n, err := r.Read(buf)
		for _, delta := range dec.Feed(buf[:n]) {
			reply.WriteString(delta)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return reply.String(), errors.Wrap(err, "read stream")
		}
	}
	for _, delta := range dec.Flush() {
		reply.WriteString(delta)
	}
	return reply.String(), nil
}

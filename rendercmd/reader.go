package rendercmd

import (
	"github.com/pkg/errors"
)

// Reader walks the commands of a stream buffer in push order. Every offset
// and kind is checked against the buffer before it is used.
//
//	r := rendercmd.NewReader(buf)
//	for r.Next() {
//		switch r.Kind() {
//		case rendercmd.KindTriangles:
//			draw(r.Triangles())
//		}
//	}
//	if err := r.Err(); err != nil {
//		...
//	}
type Reader struct {
	buf       []byte
	count     int
	remaining int
	next      uint64
	at        int
	rec       []byte
	kind      Kind
	err       error
}

func NewReader(buf []byte) *Reader {
	r := &Reader{buf: buf}
	if len(buf) < headerSize {
		r.err = errors.Wrapf(ErrBufferTooSmall, "%d bytes", len(buf))
		return r
	}
	r.count = int(le.Uint32(buf[0:]))
	r.remaining = r.count
	r.next = le.Uint64(buf[8:])
	return r
}

// Count returns the number of commands the header declares.
func (r *Reader) Count() int { return r.count }

// Next advances to the next command. It returns false at the end of the
// stream or on the first malformed record; Err tells the two apart.
func (r *Reader) Next() bool {
	r.rec, r.kind = nil, 0
	if r.err != nil || r.remaining == 0 {
		return false
	}
	at := r.next
	if at < headerSize || at > uint64(len(r.buf))-subHeaderSize {
		return r.fail("record %d at %d outside buffer of %d", r.count-r.remaining, at, len(r.buf))
	}
	k := Kind(le.Uint32(r.buf[at:]))
	size, align, ok := k.layout()
	if !ok {
		return r.fail("record %d at %d has kind %d", r.count-r.remaining, at, uint32(k))
	}
	if at%uint64(align) != 0 || at+uint64(size) > uint64(len(r.buf)) {
		return r.fail("%s record at %d misplaced in buffer of %d", k, at, len(r.buf))
	}
	next := le.Uint64(r.buf[at+8:])
	r.remaining--
	switch {
	case r.remaining == 0 && next != 0:
		return r.fail("last record at %d links to %d", at, next)
	case r.remaining > 0 && next < at+uint64(size):
		return r.fail("%s record at %d links backwards to %d", k, at, next)
	}
	r.rec = r.buf[at : at+uint64(size)]
	r.at = int(at)
	r.kind = k
	r.next = next
	return true
}

func (r *Reader) fail(format string, args ...any) bool {
	r.err = errors.Wrapf(ErrCorrupt, format, args...)
	return false
}

func (r *Reader) Err() error { return r.err }

// Kind returns the kind of the current command.
func (r *Reader) Kind() Kind { return r.kind }

// Offset returns the buffer offset of the current command.
func (r *Reader) Offset() int {
	if r.rec == nil {
		return -1
	}
	return r.at
}

// NextOffset returns the link stored in the current command's sub-header.
func (r *Reader) NextOffset() int { return int(r.next) }

func (r *Reader) Options() Options {
	r.must(KindOptions)
	return decodeOptions(r.rec)
}

func (r *Reader) Uniforms() Uniforms {
	r.must(KindUniforms)
	return decodeUniforms(r.rec)
}

func (r *Reader) Triangles() Triangles {
	r.must(KindTriangles)
	return decodeTriangles(r.rec)
}

func (r *Reader) Polyline() Polyline {
	r.must(KindPolyline)
	return decodePolyline(r.rec)
}

func (r *Reader) Text() Text {
	r.must(KindText)
	return decodeText(r.rec)
}

// Command decodes the current command into an interface value.
func (r *Reader) Command() Command {
	switch r.kind {
	case KindOptions:
		return decodeOptions(r.rec)
	case KindUniforms:
		return decodeUniforms(r.rec)
	case KindTriangles:
		return decodeTriangles(r.rec)
	case KindPolyline:
		return decodePolyline(r.rec)
	case KindText:
		return decodeText(r.rec)
	}
	return nil
}

func (r *Reader) must(k Kind) {
	if r.kind != k {
		panic(errors.Errorf("rendercmd: %s accessor on %s record", k, r.kind))
	}
}

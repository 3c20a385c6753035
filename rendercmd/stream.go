package rendercmd

import (
	"github.com/pkg/errors"
)

const (
	headerSize    = 32
	subHeaderSize = 16
)

var (
	ErrCapacityExceeded = errors.New("rendercmd: stream buffer full")
	ErrBufferTooSmall   = errors.New("rendercmd: buffer smaller than stream header")
	ErrCorrupt          = errors.New("rendercmd: corrupt stream")
)

// Stream appends commands to a caller-owned buffer. All of its state lives in
// the buffer's header, so a renderer only needs the bytes.
type Stream struct {
	buf []byte
}

// New wraps buf and clears its header.
func New(buf []byte) (*Stream, error) {
	if len(buf) < headerSize {
		return nil, errors.Wrapf(ErrBufferTooSmall, "%d bytes", len(buf))
	}
	s := &Stream{buf: buf}
	s.Reset()
	return s, nil
}

// Reset empties the stream. Command bytes are left in place and overwritten
// by later pushes.
func (s *Stream) Reset() {
	clear(s.buf[:headerSize])
}

// Len returns the number of commands pushed since the last Reset.
func (s *Stream) Len() int { return int(le.Uint32(s.buf[0:])) }

// Used returns the number of bytes in use, header included.
func (s *Stream) Used() int {
	if s.Len() == 0 {
		return headerSize
	}
	return int(le.Uint64(s.buf[24:]))
}

func (s *Stream) Cap() int      { return len(s.buf) }
func (s *Stream) Bytes() []byte { return s.buf }

// Reader returns a Reader over the commands pushed so far.
func (s *Stream) Reader() *Reader { return NewReader(s.buf) }

// Push appends c to s.
func Push[C Command](s *Stream, c C) error {
	at, err := s.reserve(c.Kind())
	if err != nil {
		return err
	}
	size, _, _ := c.Kind().layout()
	c.encode(s.buf[at : at+size])
	return nil
}

// PushCommand appends a command held in an interface value.
func (s *Stream) PushCommand(c Command) error {
	return Push(s, c)
}

// reserve places a record of kind k, links it after the previous one and
// updates the header. It returns the record's offset.
func (s *Stream) reserve(k Kind) (int, error) {
	size, align, ok := k.layout()
	if !ok {
		return 0, errors.Errorf("rendercmd: push of invalid kind %d", k)
	}
	count := le.Uint32(s.buf[0:])
	head := uint64(headerSize)
	if count > 0 {
		head = le.Uint64(s.buf[24:])
	}
	at := alignUp(int(head), align)
	if at+size > len(s.buf) {
		return 0, errors.Wrapf(ErrCapacityExceeded, "%s at %d needs %d bytes, buffer holds %d",
			k, at, size, len(s.buf))
	}
	if count == 0 {
		le.PutUint64(s.buf[8:], uint64(at))
	} else {
		prev := le.Uint64(s.buf[16:])
		le.PutUint64(s.buf[prev+8:], uint64(at))
	}
	rec := s.buf[at : at+size]
	le.PutUint32(rec[0:], uint32(k))
	le.PutUint32(rec[4:], 0)
	le.PutUint64(rec[8:], 0)

	le.PutUint32(s.buf[0:], count+1)
	le.PutUint64(s.buf[16:], uint64(at))
	le.PutUint64(s.buf[24:], uint64(at+size))
	return at, nil
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

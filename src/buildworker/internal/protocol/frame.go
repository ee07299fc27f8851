package protocol

import (
	"bufio"
	stderr "errors"
	"fmt"
	"io"

	"github.com/uber/incbuild/src/buildworker/internal/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// MaxFrameSize bounds the payload of a single frame, well below the 2^31-1 a varint32 prefix can carry.
	MaxFrameSize = 64 << 20

	// Length prefixes are 32-bit varints.
	maxVarint32Bytes = 5

	_initialReadBuffer = 64 << 10
)

// ScanFrames is a bufio.SplitFunc returning one length-prefixed payload per token.
// Incomplete frames are left in the scanner's buffer until more data arrives.
func ScanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) == 0 {
		return 0, nil, nil
	}

	size, n := protowire.ConsumeVarint(data)
	if n < 0 {
		perr := protowire.ParseError(n)
		if stderr.Is(perr, io.ErrUnexpectedEOF) && len(data) < maxVarint32Bytes {
			if atEOF {
				return 0, nil, fmt.Errorf("%w: truncated length prefix", errors.ErrMalformedFrame)
			}
			return 0, nil, nil
		}
		return 0, nil, malformed(perr)
	}
	if n > maxVarint32Bytes || size > MaxFrameSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", errors.ErrFrameTooLarge, size)
	}

	end := n + int(size)
	if len(data) < end {
		if atEOF {
			return 0, nil, fmt.Errorf("%w: truncated frame, want %d bytes, have %d", errors.ErrMalformedFrame, size, len(data)-n)
		}
		return 0, nil, nil
	}
	return end, data[n:end], nil
}

// FrameReader decodes envelopes from a byte stream.
type FrameReader struct {
	scanner *bufio.Scanner
}

// NewFrameReader returns a FrameReader reading from r.
func NewFrameReader(r io.Reader) *FrameReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, _initialReadBuffer), MaxFrameSize+maxVarint32Bytes)
	scanner.Split(ScanFrames)
	return &FrameReader{scanner: scanner}
}

// Read returns the next envelope, or io.EOF once the stream ends on a frame boundary.
func (fr *FrameReader) Read() (*Message, error) {
	if !fr.scanner.Scan() {
		if err := fr.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return Unmarshal(fr.scanner.Bytes())
}

// FrameWriter encodes envelopes onto a byte stream. It is not safe for concurrent use.
type FrameWriter struct {
	w    io.Writer
	pool *BufferPool
}

// NewFrameWriter returns a FrameWriter writing to w. A nil pool allocates a private one.
func NewFrameWriter(w io.Writer, pool *BufferPool) *FrameWriter {
	if pool == nil {
		pool = NewBufferPool(_initialBufferSize, _bufferSizeCount)
	}
	return &FrameWriter{w: w, pool: pool}
}

// Write encodes m as a single frame with one call to the underlying writer.
func (fw *FrameWriter) Write(m *Message) error {
	payload := Marshal(m)
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", errors.ErrFrameTooLarge, len(payload))
	}

	size := protowire.SizeVarint(uint64(len(payload))) + len(payload)
	buf := fw.pool.Get(size)
	defer fw.pool.Put(buf)

	frame := protowire.AppendVarint(buf[:0], uint64(len(payload)))
	frame = append(frame, payload...)
	_, err := fw.w.Write(frame)
	return err
}

package base

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"io"
	"net"
)

const frameHeaderSize = 4

// writeFrame writes a frame to the writer with the format:
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func writeFrame(w io.Writer, data []byte) error {
	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(header, uint32(len(data)))

	// net.Buffers uses writev for net.Conn and falls back to sequential writes
	b := net.Buffers{header, data}
	_, err := b.WriteTo(w)
	return err
}

// readFrame reads one frame from the reader. Frames larger than maxSize are
// rejected (maxSize 0 disables the check). The returned slice is owned by
// the caller.
func readFrame(r io.Reader, header []byte, maxSize uint32) ([]byte, error) {
	if len(header) < frameHeaderSize {
		header = make([]byte, frameHeaderSize)
	}

	// Read header
	if _, err := io.ReadFull(r, header[:frameHeaderSize]); err != nil {
		return nil, err
	}

	contentLength := binary.BigEndian.Uint32(header[:frameHeaderSize])
	if maxSize > 0 && contentLength > maxSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", common.ErrFrameTooLarge, contentLength, maxSize)
	}

	// If no data, return empty slice
	if contentLength == 0 {
		return []byte{}, nil
	}

	data := make([]byte, contentLength)
	if _, err := io.ReadFull(r, data); err != nil {
		// a half written frame is a broken stream, not a clean shutdown
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return data, nil
}

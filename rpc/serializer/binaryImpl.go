package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
//
// Layout:
//   - 1 byte: magic (frames with another first byte are not protocol frames)
//   - 1 byte: kind (0 = no marker, 1 = request, 2 = response)
//   - 1 byte: flags
//   - for each flagged string/bytes field: 4 byte length (big endian) + data
type binarySerializerImpl struct {
}

const (
	binaryMagic byte = 0xA5
	headerSize       = 3
)

// Kind encoding
const (
	kindNone     byte = 0
	kindRequest  byte = 1
	kindResponse byte = 2
)

// Bit flags to indicate which optional fields are present
const (
	hasID      byte = 1 << 0
	hasType    byte = 1 << 1
	hasContent byte = 1 << 2
	hasErr     byte = 1 << 3
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(env common.Envelope) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, b.sizeBytes(env))

	result[0] = binaryMagic

	// Write kind
	switch env.Kind() {
	case common.KindRequest:
		result[1] = kindRequest
	case common.KindResponse:
		result[1] = kindResponse
	case "":
		result[1] = kindNone
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", common.ErrInvalidEnvelope, env.Kind())
	}

	// Initialize flags byte
	var flags byte = 0

	// Set position for writing
	pos := headerSize

	if env.ID != "" {
		flags |= hasID
		pos = putBytes(result, pos, []byte(env.ID))
	}

	if env.Type != "" {
		flags |= hasType
		pos = putBytes(result, pos, []byte(env.Type))
	}

	if env.Content != nil {
		flags |= hasContent
		pos = putBytes(result, pos, env.Content)
	}

	if env.Err {
		flags |= hasErr
	}

	// Set flags byte after knowing which fields are present
	result[2] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, env *common.Envelope) error {
	*env = common.Envelope{}

	// Check minimum size (magic + kind + flags)
	if len(data) < headerSize {
		return fmt.Errorf("%w: data too short for envelope header", common.ErrInvalidEnvelope)
	}
	if data[0] != binaryMagic {
		return common.ErrNotProtocolFrame
	}

	// Read kind
	switch data[1] {
	case kindNone:
	case kindRequest:
		env.Async = &common.Marker{Type: common.KindRequest}
	case kindResponse:
		env.Async = &common.Marker{Type: common.KindResponse}
	default:
		return fmt.Errorf("%w: unknown kind %d", common.ErrInvalidEnvelope, data[1])
	}

	// Read flags
	flags := data[2]

	// Initialize read position
	pos := headerSize
	var err error
	var field []byte

	// Read ID if present
	if flags&hasID != 0 {
		if field, pos, err = readBytes(data, pos, "id"); err != nil {
			return err
		}
		env.ID = string(field)
	}

	// Read Type if present
	if flags&hasType != 0 {
		if field, pos, err = readBytes(data, pos, "type"); err != nil {
			return err
		}
		env.Type = string(field)
	}

	// Read Content if present - create an empty slice (not nil) if length is 0
	if flags&hasContent != 0 {
		if field, pos, err = readBytes(data, pos, "content"); err != nil {
			return err
		}
		env.Content = make([]byte, len(field))
		copy(env.Content, field)
	}

	env.Err = flags&hasErr != 0

	if pos != len(data) {
		return fmt.Errorf("%w: %d trailing bytes", common.ErrInvalidEnvelope, len(data)-pos)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(env common.Envelope) int {
	size := headerSize

	// Add sizes for fields that require length encoding
	if env.ID != "" {
		size += 4 + len(env.ID)
	}
	if env.Type != "" {
		size += 4 + len(env.Type)
	}
	if env.Content != nil {
		size += 4 + len(env.Content)
	}

	return size
}

// putBytes writes a length prefixed field and returns the new position
func putBytes(dst []byte, pos int, field []byte) int {
	binary.BigEndian.PutUint32(dst[pos:pos+4], uint32(len(field)))
	pos += 4
	copy(dst[pos:pos+len(field)], field)
	return pos + len(field)
}

// readBytes reads a length prefixed field and returns it with the new position
func readBytes(data []byte, pos int, name string) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, pos, fmt.Errorf("%w: data too short for %s length", common.ErrInvalidEnvelope, name)
	}

	fieldLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4

	if fieldLen < 0 || pos+fieldLen > len(data) {
		return nil, pos, fmt.Errorf("%w: data too short for %s data", common.ErrInvalidEnvelope, name)
	}

	return data[pos : pos+fieldLen], pos + fieldLen, nil
}

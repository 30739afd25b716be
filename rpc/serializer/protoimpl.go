package serializer

import (
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"google.golang.org/protobuf/encoding/protowire"
)

// NewProtoSerializer creates a new serializer using the protobuf wire format.
// The envelope corresponds to the following message:
//
//	message Envelope {
//	  Kind   kind    = 1; // 0 = none, 1 = request, 2 = response
//	  string id      = 2;
//	  string type    = 3;
//	  bytes  content = 4;
//	  bool   err     = 5;
//	}
func NewProtoSerializer() IRPCSerializer {
	return &protoSerializerImpl{}
}

// protoSerializerImpl implements the IRPCSerializer interface using protowire
type protoSerializerImpl struct {
}

const (
	protoFieldKind    protowire.Number = 1
	protoFieldID      protowire.Number = 2
	protoFieldType    protowire.Number = 3
	protoFieldContent protowire.Number = 4
	protoFieldErr     protowire.Number = 5
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (p protoSerializerImpl) Serialize(env common.Envelope) ([]byte, error) {
	var b []byte

	switch env.Kind() {
	case common.KindRequest:
		b = protowire.AppendTag(b, protoFieldKind, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(kindRequest))
	case common.KindResponse:
		b = protowire.AppendTag(b, protoFieldKind, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(kindResponse))
	case "":
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", common.ErrInvalidEnvelope, env.Kind())
	}

	if env.ID != "" {
		b = protowire.AppendTag(b, protoFieldID, protowire.BytesType)
		b = protowire.AppendString(b, env.ID)
	}
	if env.Type != "" {
		b = protowire.AppendTag(b, protoFieldType, protowire.BytesType)
		b = protowire.AppendString(b, env.Type)
	}
	if env.Content != nil {
		b = protowire.AppendTag(b, protoFieldContent, protowire.BytesType)
		b = protowire.AppendBytes(b, env.Content)
	}
	if env.Err {
		b = protowire.AppendTag(b, protoFieldErr, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}

	return b, nil
}

func (p protoSerializerImpl) Deserialize(b []byte, env *common.Envelope) error {
	*env = common.Envelope{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", common.ErrInvalidEnvelope, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == protoFieldKind && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: kind: %v", common.ErrInvalidEnvelope, protowire.ParseError(n))
			}
			switch byte(v) {
			case kindRequest:
				env.Async = &common.Marker{Type: common.KindRequest}
			case kindResponse:
				env.Async = &common.Marker{Type: common.KindResponse}
			default:
				return fmt.Errorf("%w: unknown kind %d", common.ErrInvalidEnvelope, v)
			}
			b = b[n:]

		case num == protoFieldID && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("%w: id: %v", common.ErrInvalidEnvelope, protowire.ParseError(n))
			}
			env.ID = v
			b = b[n:]

		case num == protoFieldType && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("%w: type: %v", common.ErrInvalidEnvelope, protowire.ParseError(n))
			}
			env.Type = v
			b = b[n:]

		case num == protoFieldContent && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: content: %v", common.ErrInvalidEnvelope, protowire.ParseError(n))
			}
			env.Content = make([]byte, len(v))
			copy(env.Content, v)
			b = b[n:]

		case num == protoFieldErr && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: err: %v", common.ErrInvalidEnvelope, protowire.ParseError(n))
			}
			env.Err = protowire.DecodeBool(v)
			b = b[n:]

		default:
			// skip unknown fields
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: %v", common.ErrInvalidEnvelope, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return nil
}

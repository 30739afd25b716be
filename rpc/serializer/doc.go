// Package serializer turns envelopes into frames and back. It defines a common
// interface and several implementations with different trade-offs.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - jsonSerializerImpl: The reference wire format. Envelopes are encoded as
//     {"__async":{"type":"__req"},"id":...,"type":...,"content":...,"err":...}
//     which peers in other languages can speak without extra tooling.
//
//   - binarySerializerImpl: Custom binary format with a magic byte, a kind byte
//     and a flag byte followed by length prefixed fields. Smallest frames.
//
//   - protoSerializerImpl: Protobuf wire format written with protowire, so peers
//     with generated protobuf code can decode frames without a JSON parser.
//
//   - gobSerializerImpl: Go's gob encoding. Only usable between Go peers and
//     clearly the slowest option, kept for comparison in the benchmarks.
//
// Foreign traffic:
//
//	A frame that decodes without error but carries no protocol marker is not
//	a protocol frame (see common.Envelope.IsProtocol). Decoding errors are
//	treated the same way by the engine: the frame is ignored.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s := serializer.NewJSONSerializer()
//	data, err := s.Serialize(common.NewRequestEnvelope(id, "echo", content))
//	// ... send data ...
//	var env common.Envelope
//	err = s.Deserialize(receivedData, &env)
package serializer

package serializer

import (
	"encoding/json"
	"errors"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
	"Proto":  NewProtoSerializer,
}

// testEnvelopes creates a set of test envelopes with different fields filled
func testEnvelopes() []common.Envelope {
	errEnv, _ := common.NewErrorEnvelope("id-3", "boom", common.ErrorDescriptor{
		Message:    "bad",
		Stack:      "stack",
		StatusCode: 500,
	})

	return []common.Envelope{
		// Request with payload
		common.NewRequestEnvelope("id-1", "echo", json.RawMessage(`{"n":1}`)),

		// Response with payload
		common.NewResponseEnvelope("id-2", "echo", json.RawMessage(`{"n":2}`)),

		// Failed response
		errEnv,

		// Request without payload
		common.NewRequestEnvelope("id-4", "ping", nil),

		// Response with a scalar payload
		common.NewResponseEnvelope("id-5", "count", json.RawMessage(`42`)),
	}
}

// TestSerializerRoundTrip tests that envelopes can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	envelopes := testEnvelopes()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, env := range envelopes {
				// Serialize
				data, err := serializer.Serialize(env)
				if err != nil {
					t.Errorf("Failed to serialize envelope %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Envelope
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize envelope %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(env, result) {
					t.Errorf("Envelope %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, env, result)
				}

				if !result.IsProtocol() {
					t.Errorf("Envelope %d lost its protocol marker", i)
				}
			}
		})
	}
}

// TestDeserializeResetsEnvelope tests that decoding into a used envelope does not leak old fields
func TestDeserializeResetsEnvelope(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Serialize(common.NewRequestEnvelope("fresh", "ping", nil))
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			result := common.NewResponseEnvelope("stale", "echo", json.RawMessage(`{}`))
			result.Err = true
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if result.ID != "fresh" || result.Content != nil || result.Err || result.Kind() != common.KindRequest {
				t.Errorf("Envelope not reset: %+v", result)
			}
		})
	}
}

// TestJSONWireShape tests that the JSON serializer produces the documented wire shape
func TestJSONWireShape(t *testing.T) {
	serializer := NewJSONSerializer()

	testCases := []struct {
		name     string
		env      common.Envelope
		expected string
	}{
		{
			name:     "Request",
			env:      common.NewRequestEnvelope("abc", "echo", json.RawMessage(`{"n":1}`)),
			expected: `{"__async":{"type":"__req"},"id":"abc","type":"echo","content":{"n":1}}`,
		},
		{
			name:     "Response",
			env:      common.NewResponseEnvelope("abc", "echo", json.RawMessage(`{"n":2}`)),
			expected: `{"__async":{"type":"__res"},"id":"abc","type":"echo","content":{"n":2}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.env)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}
			if string(data) != tc.expected {
				t.Errorf("Wire shape mismatch:\nexpected %s\ngot      %s", tc.expected, data)
			}
		})
	}

	// A failed response carries the error descriptor in the content field
	errEnv, err := common.NewErrorEnvelope("abc", "boom", common.ErrorDescriptor{Message: "bad", StatusCode: 404})
	if err != nil {
		t.Fatalf("Failed to build error envelope: %v", err)
	}
	data, err := serializer.Serialize(errEnv)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	expected := `{"__async":{"type":"__res"},"id":"abc","type":"boom","content":{"message":"bad","stack":"","statusCode":404},"err":true}`
	if string(data) != expected {
		t.Errorf("Wire shape mismatch:\nexpected %s\ngot      %s", expected, data)
	}
}

// TestNonProtocolTraffic tests that foreign frames are not recognized as protocol envelopes
func TestNonProtocolTraffic(t *testing.T) {
	testCases := []struct {
		name       string
		serializer IRPCSerializer
		data       []byte
	}{
		{"JSON without marker", NewJSONSerializer(), []byte(`{"id":"1","type":"chat","content":"hello"}`)},
		{"JSON plain text", NewJSONSerializer(), []byte(`hello world`)},
		{"Binary wrong magic", NewBinarySerializer(), []byte{0x01, 0x01, 0x00}},
		{"Binary no marker", NewBinarySerializer(), []byte{binaryMagic, kindNone, 0x00}},
		{"Proto empty", NewProtoSerializer(), []byte{}},
		{"GOB garbage", NewGOBSerializer(), []byte("garbage")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var env common.Envelope
			err := tc.serializer.Deserialize(tc.data, &env)
			if err == nil && env.IsProtocol() {
				t.Errorf("Foreign frame was recognized as protocol envelope: %+v", env)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{binaryMagic, kindRequest}, // no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{binaryMagic, kindRequest, 0},
			expectError: false,
		},
		{
			name:        "Unknown kind",
			data:        []byte{binaryMagic, 9, 0},
			expectError: true,
		},
		{
			name:        "Invalid length for id",
			data:        []byte{binaryMagic, kindRequest, hasID, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims id length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for content",
			data:        []byte{binaryMagic, kindResponse, hasContent, 0, 0, 0, 10}, // Claims content length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Trailing bytes",
			data:        []byte{binaryMagic, kindRequest, 0, 1, 2},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var env common.Envelope
			err := serializer.Deserialize(tc.data, &env)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}

	// wrong magic is reported as foreign traffic
	var env common.Envelope
	if err := serializer.Deserialize([]byte{0x00, 0x00, 0x00}, &env); !errors.Is(err, common.ErrNotProtocolFrame) {
		t.Errorf("Expected ErrNotProtocolFrame, got %v", err)
	}
}

// TestInvalidProtoData tests how the proto serializer handles corrupt data
func TestInvalidProtoData(t *testing.T) {
	serializer := NewProtoSerializer()

	testCases := []struct {
		name string
		data []byte
	}{
		{"Truncated tag", []byte{0x80}},
		{"Truncated id", []byte{0x12, 0x05, 'a'}},
		{"Unknown kind", []byte{0x08, 0x07}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var env common.Envelope
			if err := serializer.Deserialize(tc.data, &env); !errors.Is(err, common.ErrInvalidEnvelope) {
				t.Errorf("Expected ErrInvalidEnvelope, got %v", err)
			}
		})
	}
}

// Package remote exposes the rewrite as a gRPC service. Requests and
// responses carry serialized bundles, so no generated protobuf code is
// involved; the service descriptor is constructed by hand and payloads
// travel through a gob codec.
package remote

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype clients must request.
const CodecName = "gob"

// RewriteRequest carries a serialized bundle to the server.
type RewriteRequest struct {
	Bundle []byte
}

// RewriteResponse carries the serialized rewritten bundle back.
type RewriteResponse struct {
	Bundle []byte
}

func init() {
	encoding.RegisterCodec(gobCodec{})
}

// gobCodec marshals gRPC messages with encoding/gob.
type gobCodec struct{}

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("gob marshal: %w", err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("gob unmarshal: %w", err)
	}
	return nil
}

func (gobCodec) Name() string { return CodecName }

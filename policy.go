package fetchbridge

import "encoding/json"

// Capability reports which transports a client may use. It is fixed at
// construction time so the dispatch decision never consults ambient
// state.
type Capability interface {
	// StreamingEnabled reports whether the streaming transport is
	// available to this client.
	StreamingEnabled() bool
}

// StreamingAvailable is the Capability of a client whose streaming
// transport is usable.
type StreamingAvailable struct{}

// StreamingEnabled always returns true.
func (StreamingAvailable) StreamingEnabled() bool { return true }

// StreamingUnavailable is the Capability of a client restricted to the
// buffered transport. Requests that ask for streaming are served
// buffered instead.
type StreamingUnavailable struct{}

// StreamingEnabled always returns false.
func (StreamingUnavailable) StreamingEnabled() bool { return false }

// resolveStreamIntent decides whether a request asks for streaming
// delivery. An explicit Stream flag on the request always wins;
// otherwise the encoded body is probed for a top-level "stream":true
// member.
func resolveStreamIntent(explicit *bool, body []byte) bool {
	if explicit != nil {
		return *explicit
	}
	return bodyRequestsStream(body)
}

// bodyRequestsStream reports whether body is a JSON object whose
// top-level "stream" member is true. Non-JSON bodies and bodies where
// the member is absent, false or not a boolean do not request
// streaming.
func bodyRequestsStream(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	var probe struct {
		Stream bool `json:"stream"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return probe.Stream
}

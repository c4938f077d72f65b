// Package wscore is a reusable WebSocket service core offering three
// compositional serving patterns over an authenticated endpoint: periodic
// broadcast (every client receives a generated string at a fixed interval),
// pub/sub broadcast (strings published by the host are fanned out to every
// client), and reactive (each inbound text frame may produce a reply).
//
// The host picks a flavor, fills in the matching config, and calls one of
// RunPeriodic, RunPubsub or RunReactive. Everything else — authentication,
// admission control, per-session pacing, fan-out and shutdown — is handled
// here.
package wscore

import "encoding/json"

const (
	// MailboxCapacity bounds the outbound message queue of a session. A
	// session whose mailbox overflows is torn down instead of delaying the
	// producer.
	MailboxCapacity = 1024

	// NotFoundMessage is the error string carried by the canonical response
	// for requests that match no route.
	NotFoundMessage = "You won't find anything here!"
)

// CommonResponse is the JSON document returned on every plain HTTP route.
// An empty response serialises as {"error":[],"result":{}}.
type CommonResponse struct {
	Error  []string          `json:"error"`
	Result map[string]string `json:"result"`
}

// NewCommonResponse returns a response whose error list and result map are
// allocated, so both always serialise as present fields.
func NewCommonResponse() CommonResponse {
	return CommonResponse{
		Error:  []string{},
		Result: map[string]string{},
	}
}

// NotFoundResponse returns the canonical body for unmapped routes.
func NotFoundResponse() CommonResponse {
	r := NewCommonResponse()
	r.Error = append(r.Error, NotFoundMessage)
	return r
}

// JSON serialises the response. The shape is fixed, so marshalling cannot
// fail for any value of CommonResponse.
func (r CommonResponse) JSON() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		return []byte(`{"error":[],"result":{}}`)
	}
	return data
}

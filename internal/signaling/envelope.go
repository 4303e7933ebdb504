package signaling

import (
	"encoding/json"
	"errors"

	"github.com/pion/webrtc/v3"
)

// Message is the WebSocket message envelope.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Recognized events. The server relays signal and call-ended; error is sent
// back to a peer whose envelope fails strict validation.
const (
	EventSignal    = "signal"
	EventCallEnded = "call-ended"
	EventError     = "error"
)

// Envelope is one signaling payload: exactly one of offer, answer, candidate
// or callEnded. The server never interprets the SDP or candidate contents
// beyond strict-mode shape validation.
type Envelope struct {
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	CallEnded bool            `json:"callEnded,omitempty"`
}

var (
	ErrEmptyEnvelope     = errors.New("signaling envelope carries no payload")
	ErrAmbiguousEnvelope = errors.New("signaling envelope carries more than one payload")
	ErrBadDescription    = errors.New("malformed session description")
	ErrBadCandidate      = errors.New("malformed ice candidate")
)

// ValidateEnvelope checks that data is a well-formed signaling envelope.
// Offers and answers must decode as a session description (or a bare SDP
// string) and candidates as an ICE candidate init.
func ValidateEnvelope(data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ErrEmptyEnvelope
	}

	set := 0
	if len(env.Offer) > 0 {
		set++
	}
	if len(env.Answer) > 0 {
		set++
	}
	if len(env.Candidate) > 0 {
		set++
	}
	if env.CallEnded {
		set++
	}
	switch {
	case set == 0:
		return ErrEmptyEnvelope
	case set > 1:
		return ErrAmbiguousEnvelope
	}

	switch {
	case len(env.Offer) > 0:
		return validateDescription(env.Offer, webrtc.SDPTypeOffer)
	case len(env.Answer) > 0:
		return validateDescription(env.Answer, webrtc.SDPTypeAnswer)
	case len(env.Candidate) > 0:
		var cand webrtc.ICECandidateInit
		if err := json.Unmarshal(env.Candidate, &cand); err != nil {
			return ErrBadCandidate
		}
	}
	return nil
}

// validateDescription accepts either a {type, sdp} object whose type matches,
// or a bare SDP string.
func validateDescription(raw json.RawMessage, typ webrtc.SDPType) error {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(raw, &desc); err == nil && desc.SDP != "" {
		if desc.Type != typ {
			return ErrBadDescription
		}
		return nil
	}
	var sdp string
	if err := json.Unmarshal(raw, &sdp); err == nil && sdp != "" {
		return nil
	}
	return ErrBadDescription
}

package ws

import (
	"encoding/json"

	"coderace/pkg/errors"
)

// inbound is the closed set of client messages. decodeInbound is the only
// constructor, so a session handles every kind or none.
type inbound interface {
	isInbound()
}

type joinMsg struct {
	Name string `json:"name"`
}

type startMsg struct{}

type submitMsg struct {
	Code string `json:"code"`
}

type lockMsg struct{}

type restartMsg struct{}

type chatMsg struct {
	Message string `json:"message"`
}

func (joinMsg) isInbound()    {}
func (startMsg) isInbound()   {}
func (submitMsg) isInbound()  {}
func (lockMsg) isInbound()    {}
func (restartMsg) isInbound() {}
func (chatMsg) isInbound()    {}

// decodeInbound parses one client frame. Unknown types and malformed JSON
// come back as protocol errors for a targeted reply; they never terminate
// the connection.
func decodeInbound(data []byte) (inbound, error) {
	var envelope struct {
		Type    string `json:"type"`
		Name    string `json:"name"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.Wrapf(err, errors.ProtocolMalformed, "Malformed message")
	}

	switch envelope.Type {
	case "join":
		return joinMsg{Name: envelope.Name}, nil
	case "start":
		return startMsg{}, nil
	case "submit":
		return submitMsg{Code: envelope.Code}, nil
	case "lock":
		return lockMsg{}, nil
	case "restart":
		return restartMsg{}, nil
	case "chat":
		return chatMsg{Message: envelope.Message}, nil
	case "":
		return nil, errors.New(errors.ProtocolMalformed).WithMessage("Message has no type")
	default:
		return nil, errors.Newf(errors.UnknownMessage, "Unknown message type %q", envelope.Type)
	}
}

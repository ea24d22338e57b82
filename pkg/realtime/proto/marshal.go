package proto

import "encoding/json"

// commandEnvelope mirrors the fields every command document must carry. The
// remainder of the document is kept raw for the handler's typed decode.
type commandEnvelope struct {
	Type        CommandType `json:"type"`
	ReferenceID string      `json:"referenceId"`
	AuthToken   string      `json:"authToken,omitempty"`
}

// UnmarshalCommand decodes an inbound frame into a command. A frame that is
// not a JSON object or carries no type tag is a protocol violation.
func UnmarshalCommand(data []byte) (*Command, error) {
	var envelope commandEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, NewProtocolError("invalid message envelope")
	}

	if envelope.Type == CommandTypeInvalid {
		return nil, NewProtocolError("message does not contain a command type")
	}

	return &Command{
		Type:        envelope.Type,
		ReferenceID: envelope.ReferenceID,
		AuthToken:   envelope.AuthToken,
		Payload:     json.RawMessage(data),
	}, nil
}

// Decode unmarshals the full command document into a typed payload struct.
func (c *Command) Decode(v interface{}) error {
	if len(c.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(c.Payload, v); err != nil {
		return NewProtocolError("invalid command payload")
	}
	return nil
}

func (r Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

func (n Notification) Marshal() ([]byte, error) {
	return json.Marshal(n)
}

// NewResultResponse builds the success reply for a command.
func NewResultResponse(referenceID string, payload interface{}) Response {
	return Response{
		ReferenceID: referenceID,
		Success:     true,
		Payload:     payload,
	}
}

// NewErrorResponse builds the failure reply for a command. Any non-command
// error is reported as a storage failure with a generic message.
func NewErrorResponse(referenceID string, err error) Response {
	details := []ErrorDetail{{Code: ErrCodeStorage, Message: err.Error()}}
	if ce, ok := err.(*CommandError); ok {
		details = ce.Details()
	}

	return Response{
		ReferenceID: referenceID,
		Success:     false,
		Errors:      details,
	}
}

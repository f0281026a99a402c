package amqp

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"feedesk/internal/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MemberChangedType is the AMQP message type of member change events.
const MemberChangedType = "member.changed"

// MemberChangedMessage announces a successful add or update made from the
// desk. MemberID is empty for creations because the backend response body is
// not read.
type MemberChangedMessage struct {
	Action    string    `json:"action"`
	MemberID  core.ID   `json:"member_id,omitempty"`
	Username  string    `json:"username"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMemberChangedMessage stamps a change with the current time.
func NewMemberChangedMessage(action string, id core.ID, username string) *MemberChangedMessage {
	return &MemberChangedMessage{
		Action:    action,
		MemberID:  id,
		Username:  username,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MemberChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MemberChangedMessageFromJSON decodes a message body.
func MemberChangedMessageFromJSON(data []byte) (*MemberChangedMessage, error) {
	var msg MemberChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MeetingType selects the state transition a chat message triggers.
type MeetingType string

const (
	MeetingTypeJoin  MeetingType = "JOIN"
	MeetingTypeTalk  MeetingType = "TALK"
	MeetingTypeLeave MeetingType = "LEAVE"

	OutboundTypeRoomCountUpdate = "ROOM_COUNT_UPDATE"
)

// ErrMalformedMessage is returned when an inbound frame cannot be turned into a ChatMessage.
var ErrMalformedMessage = errors.New("malformed message")

// Valid reports whether t is one of the known meeting types.
func (t MeetingType) Valid() bool {
	switch t {
	case MeetingTypeJoin, MeetingTypeTalk, MeetingTypeLeave:
		return true
	default:
		return false
	}
}

// ChatMessage is both the inbound client frame and the relayed outbound frame.
type ChatMessage struct {
	MeetingType MeetingType `json:"meetingType"`
	ChatRoomID  int64       `json:"chatRoomId"`
	Username    string      `json:"username"`
	Message     string      `json:"message"`
}

// RoomCountUpdate is pushed to room members whenever membership changes.
type RoomCountUpdate struct {
	Type       string `json:"type"`
	ChatRoomID int64  `json:"chatRoomId"`
	Count      int    `json:"count"`
}

// inboundChatMessage uses pointers so absent fields can be told apart from zero values.
type inboundChatMessage struct {
	MeetingType *MeetingType `json:"meetingType"`
	ChatRoomID  *int64       `json:"chatRoomId"`
	Username    *string      `json:"username"`
	Message     *string      `json:"message"`
}

// DecodeChatMessage parses a text frame. Every failure wraps ErrMalformedMessage.
func DecodeChatMessage(raw []byte) (ChatMessage, error) {
	var in inboundChatMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		return ChatMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if in.MeetingType == nil {
		return ChatMessage{}, fmt.Errorf("%w: meetingType is required", ErrMalformedMessage)
	}
	if !in.MeetingType.Valid() {
		return ChatMessage{}, fmt.Errorf("%w: unknown meetingType %q", ErrMalformedMessage, *in.MeetingType)
	}
	if in.ChatRoomID == nil {
		return ChatMessage{}, fmt.Errorf("%w: chatRoomId is required", ErrMalformedMessage)
	}

	msg := ChatMessage{
		MeetingType: *in.MeetingType,
		ChatRoomID:  *in.ChatRoomID,
	}
	if in.Username != nil {
		msg.Username = *in.Username
	}
	if in.Message != nil {
		msg.Message = *in.Message
	}

	if msg.MeetingType == MeetingTypeJoin && msg.Username == "" {
		return ChatMessage{}, fmt.Errorf("%w: username is required to join", ErrMalformedMessage)
	}
	return msg, nil
}

// EncodeChatMessage serializes a chat message for relay.
func EncodeChatMessage(msg ChatMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// EncodeRoomCountUpdate builds the ROOM_COUNT_UPDATE notice.
func EncodeRoomCountUpdate(roomID int64, count int) ([]byte, error) {
	return json.Marshal(RoomCountUpdate{
		Type:       OutboundTypeRoomCountUpdate,
		ChatRoomID: roomID,
		Count:      count,
	})
}

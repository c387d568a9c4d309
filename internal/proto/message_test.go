package proto

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeChatMessage(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ChatMessage
		wantErr bool
	}{
		{
			name: "join",
			raw:  `{"meetingType":"JOIN","chatRoomId":7,"username":"a"}`,
			want: ChatMessage{MeetingType: MeetingTypeJoin, ChatRoomID: 7, Username: "a"},
		},
		{
			name: "talk with message",
			raw:  `{"meetingType":"TALK","chatRoomId":7,"username":"a","message":"hi"}`,
			want: ChatMessage{MeetingType: MeetingTypeTalk, ChatRoomID: 7, Username: "a", Message: "hi"},
		},
		{
			name: "leave without username",
			raw:  `{"meetingType":"LEAVE","chatRoomId":9}`,
			want: ChatMessage{MeetingType: MeetingTypeLeave, ChatRoomID: 9},
		},
		{
			name: "null message field",
			raw:  `{"meetingType":"TALK","chatRoomId":1,"username":"a","message":null}`,
			want: ChatMessage{MeetingType: MeetingTypeTalk, ChatRoomID: 1, Username: "a"},
		},
		{name: "not json", raw: `hello`, wantErr: true},
		{name: "missing type", raw: `{"chatRoomId":7}`, wantErr: true},
		{name: "unknown type", raw: `{"meetingType":"SHOUT","chatRoomId":7}`, wantErr: true},
		{name: "missing room", raw: `{"meetingType":"TALK","username":"a"}`, wantErr: true},
		{name: "room wrong type", raw: `{"meetingType":"TALK","chatRoomId":"seven"}`, wantErr: true},
		{name: "join without username", raw: `{"meetingType":"JOIN","chatRoomId":7}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeChatMessage([]byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedMessage) {
					t.Fatalf("expected ErrMalformedMessage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestEncodeRoomCountUpdateSchema(t *testing.T) {
	raw, err := EncodeRoomCountUpdate(7, 2)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fields["type"] != "ROOM_COUNT_UPDATE" || fields["chatRoomId"] != float64(7) || fields["count"] != float64(2) {
		t.Fatalf("unexpected notice: %s", raw)
	}
	if len(fields) != 3 {
		t.Fatalf("unexpected extra fields: %s", raw)
	}
}

func TestEncodeChatMessageUsesWireNames(t *testing.T) {
	raw, err := EncodeChatMessage(ChatMessage{MeetingType: MeetingTypeTalk, ChatRoomID: 3, Username: "b", Message: "yo"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"meetingType":"TALK","chatRoomId":3,"username":"b","message":"yo"}`
	if string(raw) != want {
		t.Fatalf("expected %s, got %s", want, raw)
	}
}

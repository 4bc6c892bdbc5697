package participant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Message
		wantErr error
	}{
		{name: "create room", raw: `{"type":"create room"}`, want: CreateRoom{}},
		{name: "create room ignores data", raw: `{"type":"create room","data":"x"}`, want: CreateRoom{}},
		{name: "join room", raw: `{"type":"join room","data":"ab12"}`, want: JoinRoom{RoomID: "ab12"}},
		{name: "leave", raw: `{"type":"leave"}`, want: Leave{}},
		{name: "url string", raw: `{"type":"url","data":"http://x"}`, want: SetURL{URL: strPtr("http://x")}},
		{name: "url null", raw: `{"type":"url","data":null}`, want: SetURL{}},
		{name: "url missing data", raw: `{"type":"url"}`, want: SetURL{}},
		{name: "chat", raw: `{"type":"chat","data":"hi"}`, want: Chat{Text: "hi"}},
		{name: "buffering", raw: `{"type":"buffering","data":true}`, want: Buffering{Value: true}},
		{name: "paused", raw: `{"type":"paused","data":false}`, want: Paused{Value: false}},
		{name: "timestamp", raw: `{"type":"timestamp","data":42.5}`, want: Timestamp{Value: 42.5}},
		{name: "avatar", raw: `{"type":"avatar","data":"cat"}`, want: Avatar{Name: "cat"}},
		{name: "sound", raw: `{"type":"sound","data":"ding"}`, want: Sound{Name: "ding"}},

		{name: "not json", raw: `{"type":`, wantErr: ErrMalformedMessage},
		{name: "not an object", raw: `[1,2]`, wantErr: ErrMalformedMessage},
		{name: "missing type", raw: `{"data":1}`, wantErr: ErrMalformedMessage},
		{name: "numeric type", raw: `{"type":5}`, wantErr: ErrMalformedMessage},
		{name: "null type", raw: `{"type":null}`, wantErr: ErrMalformedMessage},
		{name: "unknown type", raw: `{"type":"dance"}`, wantErr: ErrUnknownMessageType},

		{name: "join room without id", raw: `{"type":"join room"}`, wantErr: ErrInvalidPayload},
		{name: "join room numeric id", raw: `{"type":"join room","data":1234}`, wantErr: ErrInvalidPayload},
		{name: "url number", raw: `{"type":"url","data":1}`, wantErr: ErrInvalidPayload},
		{name: "chat null", raw: `{"type":"chat","data":null}`, wantErr: ErrInvalidPayload},
		{name: "buffering string", raw: `{"type":"buffering","data":"true"}`, wantErr: ErrInvalidPayload},
		{name: "buffering null", raw: `{"type":"buffering","data":null}`, wantErr: ErrInvalidPayload},
		{name: "paused number", raw: `{"type":"paused","data":0}`, wantErr: ErrInvalidPayload},
		{name: "timestamp string", raw: `{"type":"timestamp","data":"42"}`, wantErr: ErrInvalidPayload},
		{name: "timestamp negative", raw: `{"type":"timestamp","data":-1}`, wantErr: ErrInvalidPayload},
		{name: "avatar object", raw: `{"type":"avatar","data":{}}`, wantErr: ErrInvalidPayload},
		{name: "sound bool", raw: `{"type":"sound","data":true}`, wantErr: ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseMessage([]byte(tt.raw))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, msg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestParseMessage_InvalidPayloadText(t *testing.T) {
	_, err := ParseMessage([]byte(`{"type":"paused","data":"yes"}`))
	require.Error(t, err)
	assert.Equal(t, "Invalid data for 'paused'", err.Error())
}

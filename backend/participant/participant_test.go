package participant

import (
	"fmt"
	"strings"
	"testing"

	"github.com/adwski/watchparty/backend/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outboxMock struct {
	sent map[string][]model.Event
}

func newOutboxMock() *outboxMock {
	return &outboxMock{sent: make(map[string][]model.Event)}
}

func (o *outboxMock) Send(endpoint string, ev model.Event) bool {
	o.sent[endpoint] = append(o.sent[endpoint], ev)
	return true
}

// handlerMock records calls as "method:arg" strings.
type handlerMock struct {
	calls []string
}

func (h *handlerMock) record(p *Participant, method string, arg any) {
	h.calls = append(h.calls, fmt.Sprintf("%s:%s:%v", p.ID(), method, arg))
}

func (h *handlerMock) CreateRoom(p *Participant)          { h.record(p, "create", nil) }
func (h *handlerMock) JoinRoom(p *Participant, id string) { h.record(p, "join", id) }
func (h *handlerMock) Leave(p *Participant)               { h.record(p, "leave", nil) }
func (h *handlerMock) SetURL(p *Participant, url *string) {
	if url == nil {
		h.record(p, "url", "null")
		return
	}
	h.record(p, "url", *url)
}
func (h *handlerMock) Chat(p *Participant, text string)     { h.record(p, "chat", text) }
func (h *handlerMock) Buffering(p *Participant, v bool)     { h.record(p, "buffering", v) }
func (h *handlerMock) Paused(p *Participant, v bool)        { h.record(p, "paused", v) }
func (h *handlerMock) Timestamp(p *Participant, ts float64) { h.record(p, "timestamp", ts) }

func newTestRoster(outbox Outbox) *Roster {
	logger := zerolog.Nop()
	return NewRoster(RosterConfig{
		Outbox: outbox,
		Logger: &logger,
		Names:  func() string { return "User XYZ" },
	})
}

func TestParticipant_HandleDispatchesToHandlers(t *testing.T) {
	outbox := newOutboxMock()
	r := newTestRoster(outbox)
	p, err := r.Connect("p1")
	require.NoError(t, err)

	h1, h2 := &handlerMock{}, &handlerMock{}
	p.AddHandler(h1)
	p.AddHandler(h2)
	p.AddHandler(h1)

	frames := []string{
		`{"type":"create room"}`,
		`{"type":"join room","data":"abcd"}`,
		`{"type":"url","data":null}`,
		`{"type":"url","data":"http://x"}`,
		`{"type":"chat","data":"hello"}`,
		`{"type":"buffering","data":true}`,
		`{"type":"paused","data":true}`,
		`{"type":"timestamp","data":42}`,
		`{"type":"leave"}`,
	}
	for _, f := range frames {
		p.Handle([]byte(f))
	}

	want := []string{
		"p1:create:<nil>",
		"p1:join:abcd",
		"p1:url:null",
		"p1:url:http://x",
		"p1:chat:hello",
		"p1:buffering:true",
		"p1:paused:true",
		"p1:timestamp:42",
		"p1:leave:<nil>",
	}
	assert.Equal(t, want, h1.calls, "duplicate registration must be ignored")
	assert.Equal(t, want, h2.calls)
	assert.Empty(t, outbox.sent["p1"])
}

func TestParticipant_HandleErrors(t *testing.T) {
	outbox := newOutboxMock()
	r := newTestRoster(outbox)
	p, err := r.Connect("p1")
	require.NoError(t, err)
	h := &handlerMock{}
	p.AddHandler(h)

	p.Handle([]byte(`not json`))
	p.Handle([]byte(`{"type":1}`))
	p.Handle([]byte(`{"type":"unknown"}`))
	assert.Empty(t, outbox.sent["p1"], "malformed and unknown messages get no reply")

	p.Handle([]byte(`{"type":"paused","data":"no"}`))
	require.Len(t, outbox.sent["p1"], 1)
	assert.Equal(t, model.Event{
		Type: model.EventTypeError,
		Data: "Invalid data for 'paused'",
	}, outbox.sent["p1"][0])

	assert.Empty(t, h.calls)
}

func TestParticipant_AvatarIsLocal(t *testing.T) {
	outbox := newOutboxMock()
	r := newTestRoster(outbox)
	p, err := r.Connect("p1")
	require.NoError(t, err)
	h := &handlerMock{}
	p.AddHandler(h)

	assert.Equal(t, "User XYZ", p.Name())
	p.Handle([]byte(`{"type":"avatar","data":"Kitty"}`))
	p.Handle([]byte(`{"type":"sound","data":"ding"}`))

	assert.Equal(t, "Kitty", p.Name())
	assert.Empty(t, h.calls)
	assert.Empty(t, outbox.sent)
}

func TestParticipant_RemoveHandler(t *testing.T) {
	r := newTestRoster(newOutboxMock())
	p, err := r.Connect("p1")
	require.NoError(t, err)

	h1, h2 := &handlerMock{}, &handlerMock{}
	p.AddHandler(h1)
	p.AddHandler(h2)
	p.RemoveHandler(h1)
	p.Dispatch(Chat{Text: "x"})

	assert.Empty(t, h1.calls)
	assert.Equal(t, []string{"p1:chat:x"}, h2.calls)
}

func TestParticipant_Send(t *testing.T) {
	outbox := newOutboxMock()
	r := newTestRoster(outbox)
	p, err := r.Connect("p1")
	require.NoError(t, err)

	p.Send(model.EventTypeRoomID, nil)
	p.Error(assert.AnError)

	assert.Equal(t, []model.Event{
		{Type: model.EventTypeRoomID},
		{Type: model.EventTypeError, Data: assert.AnError.Error()},
	}, outbox.sent["p1"])
}

func TestDefaultName(t *testing.T) {
	name := DefaultName()
	require.True(t, strings.HasPrefix(name, "User "))
	suffix := strings.TrimPrefix(name, "User ")
	require.Len(t, suffix, 3)
	for _, c := range suffix {
		assert.Contains(t, model.IDAlphabet, string(c))
	}
}

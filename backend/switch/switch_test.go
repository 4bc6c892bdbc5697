package _switch

import (
	"testing"

	"github.com/adwski/watchparty/backend/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSwitch_Send(t *testing.T) {
	logger := zerolog.Nop()
	sw := NewSwitch(&logger)

	tx := make(chan model.Event, 1)
	sw.Connect("a", tx)

	ev := model.Event{Type: model.EventTypePaused, Data: true}
	assert.True(t, sw.Send("a", ev))
	assert.Equal(t, ev, <-tx)

	assert.False(t, sw.Send("b", ev), "unknown endpoint")
}

func TestSwitch_SlowEndpointDoesNotBlock(t *testing.T) {
	logger := zerolog.Nop()
	sw := NewSwitch(&logger)

	tx := make(chan model.Event, 1)
	sw.Connect("a", tx)

	assert.True(t, sw.Send("a", model.Event{Type: model.EventTypeTimestamp, Data: 1.0}))
	assert.False(t, sw.Send("a", model.Event{Type: model.EventTypeTimestamp, Data: 2.0}))
	assert.Len(t, tx, 1)
}

func TestSwitch_Disconnect(t *testing.T) {
	logger := zerolog.Nop()
	sw := NewSwitch(&logger)

	tx := make(chan model.Event, 1)
	sw.Connect("a", tx)
	sw.Disconnect("a")

	assert.False(t, sw.Send("a", model.Event{Type: model.EventTypeChat}))
	assert.Empty(t, tx)
}

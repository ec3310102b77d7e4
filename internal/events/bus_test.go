package events

import (
	"testing"

	"caredesk-server/internal/chat"
)

func TestBusDeliversToConversationSubscribers(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe("conv-1", 4)
	defer cancel()
	other, cancelOther := bus.Subscribe("conv-2", 4)
	defer cancelOther()

	bus.MessageUpserted("conv-1", chat.Message{ID: "wamid.1", Text: "hi"})

	select {
	case ev := <-ch:
		if ev.Type != EventMessageUpserted {
			t.Errorf("Type = %q", ev.Type)
		}
		if ev.ConversationID != "conv-1" || ev.Message == nil || ev.Message.ID != "wamid.1" {
			t.Errorf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("subscriber received nothing")
	}

	select {
	case ev := <-other:
		t.Fatalf("cross-conversation leak: %+v", ev)
	default:
	}
}

func TestBusConversationRefreshed(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe("conv-1", 4)
	defer cancel()

	bus.ConversationRefreshed("conv-1", []chat.Message{{ID: "a"}, {ID: "b"}})

	ev := <-ch
	if ev.Type != EventConversationRefreshed || len(ev.Messages) != 2 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestBusCancelClosesChannelAndIsIdempotent(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe("conv-1", 1)

	cancel()
	cancel() // second call must be a no-op

	if _, open := <-ch; open {
		t.Fatal("channel still open after cancel")
	}

	// publishing to a fully cancelled topic must not panic
	bus.MessageUpserted("conv-1", chat.Message{ID: "wamid.1"})
}

func TestBusDropsWhenSubscriberBufferFull(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe("conv-1", 1)
	defer cancel()

	bus.MessageUpserted("conv-1", chat.Message{ID: "first"})
	bus.MessageUpserted("conv-1", chat.Message{ID: "dropped"})

	ev := <-ch
	if ev.Message.ID != "first" {
		t.Errorf("got %q, want the first event", ev.Message.ID)
	}
	select {
	case ev := <-ch:
		t.Fatalf("overflow event was delivered: %+v", ev)
	default:
	}
}

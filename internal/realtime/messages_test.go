package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"gosocial/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageFlow_TwoConnectionReceiver(t *testing.T) {
	h := newHarness(t, "A", "B")
	a1 := h.connect(t, "A", "A1")
	a2 := h.connect(t, "A", "A2")
	b1 := h.connect(t, "B", "B1")
	for _, s := range []*fakeSession{a1, a2, b1} {
		s.reset()
	}

	h.emit(t, b1, EventSendMessage, map[string]interface{}{
		"receiverId":  "A",
		"content":     "hi",
		"clientMsgId": "c-1",
	})

	for _, s := range []*fakeSession{a1, a2} {
		got := s.named("receive_message")
		require.Len(t, got, 1, s.ID())
		msg := got[0].(ReceiveMessage)
		assert.Equal(t, "hi", msg.Content)
		assert.Equal(t, "B", msg.SenderID)
		assert.Equal(t, "A:B", msg.RoutingKey)
		require.NotNil(t, msg.Sender)
		assert.Equal(t, "@B", msg.Sender.Handle)
		assert.Empty(t, s.named("message_sent"))
	}

	require.Len(t, b1.named("message_sent"), 1)
	sent := b1.named("message_sent")[0].(MessageSent)
	assert.Equal(t, "c-1", sent.ClientMsgID)
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, a1.named("receive_message")[0].(ReceiveMessage).ID, sent.ID)
	assert.Empty(t, b1.named("receive_message"))

	stored := h.store.get(t, sent.ID)
	assert.False(t, stored.Read)
	assert.False(t, stored.Seen)
	assert.Equal(t, "c-1", stored.ClientMsgID)
	assert.Empty(t, h.notifier.all(), "online receiver gets no offline notification")

	h.emit(t, a2, EventMarkMessageRead, map[string]string{"messageId": sent.ID})

	require.Len(t, b1.named("message_read"), 1)
	read := b1.named("message_read")[0].(MessageRead)
	assert.Equal(t, sent.ID, read.MessageID)
	assert.Equal(t, "A", read.ReaderID)
	assert.False(t, read.ReadAt.IsZero())
	assert.True(t, h.store.get(t, sent.ID).Read)
}

func TestMessageFlow_OfflineReceiver(t *testing.T) {
	h := newHarness(t, "A", "B")
	b1 := h.connect(t, "B", "B1")

	id := h.sendText(t, b1, "A", "are you there?")

	assert.NotNil(t, h.store.get(t, id))
	notes := h.notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, common.MessageType, notes[0].Type)
	assert.Equal(t, "A", notes[0].UserID)
	assert.Equal(t, "B", notes[0].TriggerUserID)
	assert.Equal(t, id, notes[0].Metadata["message_id"])

	a1 := h.connect(t, "A", "A1")
	assert.Empty(t, a1.named("receive_message"), "no replay on reconnect")
}

func TestMessageFlow_PersistFailureDeliversNothing(t *testing.T) {
	h := newHarness(t, "A", "B")
	a1 := h.connect(t, "A", "A1")
	b1 := h.connect(t, "B", "B1")
	a1.reset()
	b1.reset()
	h.store.createErr = errStoreDown

	h.emit(t, b1, EventSendMessage, map[string]interface{}{"receiverId": "A", "content": "hi", "clientMsgId": "c-9"})

	assert.Empty(t, a1.received())
	assert.Empty(t, b1.named("message_sent"))
	require.Len(t, b1.named("message_error"), 1)
	e := b1.named("message_error")[0].(MessageError)
	assert.Equal(t, common.ReasonInternal, e.Reason)
	assert.Equal(t, "c-9", e.ClientMsgID)
	assert.Equal(t, EventSendMessage, e.Op)
}

func TestMessageFlow_ValidationReasons(t *testing.T) {
	tests := []struct {
		name   string
		data   map[string]interface{}
		reason string
	}{
		{name: "missing receiver", data: map[string]interface{}{"content": "x"}, reason: common.ReasonReceiverRequired},
		{name: "empty text", data: map[string]interface{}{"receiverId": "A", "content": "  "}, reason: common.ReasonEmptyContent},
		{name: "image without media", data: map[string]interface{}{"receiverId": "A", "kind": "image"}, reason: common.ReasonMediaRequired},
		{name: "shared post without ref", data: map[string]interface{}{"receiverId": "A", "kind": "shared_post"}, reason: common.ReasonPostRefRequired},
		{name: "unknown kind", data: map[string]interface{}{"receiverId": "A", "content": "x", "kind": "sticker"}, reason: common.ReasonInvalidKind},
		{name: "self message", data: map[string]interface{}{"receiverId": "B", "content": "x"}, reason: common.ReasonSelfMessage},
		{name: "unknown receiver", data: map[string]interface{}{"receiverId": "Z", "content": "x"}, reason: common.ReasonReceiverNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "A", "B")
			a1 := h.connect(t, "A", "A1")
			b1 := h.connect(t, "B", "B1")
			a1.reset()

			h.emit(t, b1, EventSendMessage, tt.data)

			errs := b1.named("message_error")
			require.Len(t, errs, 1)
			assert.Equal(t, tt.reason, errs[0].(MessageError).Reason)
			assert.Empty(t, a1.received())
			assert.Empty(t, h.store.order)
		})
	}
}

func TestMessageFlow_MediaMessage(t *testing.T) {
	h := newHarness(t, "A", "B")
	a1 := h.connect(t, "A", "A1")
	b1 := h.connect(t, "B", "B1")
	h.media.upload("f1", "B")

	h.emit(t, b1, EventSendMessage, map[string]interface{}{
		"receiverId": "A",
		"media":      map[string]string{"fileId": "f1", "url": "https://cdn/x.png", "mimeType": "image/png"},
	})

	got := a1.named("receive_message")
	require.Len(t, got, 1)
	msg := got[0].(ReceiveMessage)
	assert.Equal(t, common.MessageKindImage, msg.Kind)
	require.NotNil(t, msg.Media)
	assert.Equal(t, "f1", msg.Media.FileID)
}

func TestMessageFlow_ForeignMediaIsRefusedAndSurvives(t *testing.T) {
	h := newHarness(t, "A", "B", "C")
	a1 := h.connect(t, "A", "A1")
	b1 := h.connect(t, "B", "B1")
	c1 := h.connect(t, "C", "C1")
	h.media.upload("alice-file", "A")
	c1.reset()

	h.emit(t, b1, EventSendMessage, map[string]interface{}{
		"receiverId": "C",
		"media":      map[string]string{"fileId": "alice-file", "url": "/media/alice-file", "mimeType": "image/png"},
	})

	errs := b1.named("message_error")
	require.Len(t, errs, 1)
	assert.Equal(t, common.ReasonMediaNotOwned, errs[0].(MessageError).Reason)
	assert.Empty(t, c1.named("receive_message"))
	assert.Empty(t, h.store.commits())

	// The owner can still send it, and redacting that message purges it.
	h.emit(t, a1, EventSendMessage, map[string]interface{}{
		"receiverId": "B",
		"media":      map[string]string{"fileId": "alice-file", "url": "/media/alice-file", "mimeType": "image/png"},
	})
	sent := a1.named("message_sent")
	require.Len(t, sent, 1)
	mediaID := sent[0].(MessageSent).ID
	assert.Empty(t, h.media.purged())

	h.emit(t, a1, EventDeleteMessageForEveryone, map[string]string{"messageId": mediaID})
	assert.Equal(t, []string{"alice-file"}, h.media.purged())
}

func TestMessageFlow_SharedBlobKeptUntilLastReference(t *testing.T) {
	h := newHarness(t, "A", "B")
	a1 := h.connect(t, "A", "A1")
	h.connect(t, "B", "B1")
	h.media.upload("f1", "A")

	media := map[string]interface{}{
		"receiverId": "B",
		"media":      map[string]string{"fileId": "f1", "url": "/media/f1", "mimeType": "image/png"},
	}
	h.emit(t, a1, EventSendMessage, media)
	h.emit(t, a1, EventSendMessage, media)
	sent := a1.named("message_sent")
	require.Len(t, sent, 2)

	h.emit(t, a1, EventDeleteMessageForEveryone, map[string]string{"messageId": sent[0].(MessageSent).ID})
	assert.Empty(t, h.media.purged())

	h.emit(t, a1, EventDeleteMessageForEveryone, map[string]string{"messageId": sent[1].(MessageSent).ID})
	assert.Equal(t, []string{"f1"}, h.media.purged())
}

// Every receive_message and message_sent must name a message that is already
// stored, even when many senders race.
func TestMessageFlow_ConcurrentSendsPersistBeforeFanOut(t *testing.T) {
	const senders = 8
	const perSender = 25

	userIDs := []string{"R"}
	for i := 0; i < senders; i++ {
		userIDs = append(userIDs, "S"+string(rune('a'+i)))
	}
	h := newHarness(t, userIDs...)

	var early int32
	checkStored := func(ev ServerEvent) {
		var id string
		switch e := ev.(type) {
		case ReceiveMessage:
			id = e.ID
		case MessageSent:
			id = e.ID
		default:
			return
		}
		if !h.store.has(id) {
			atomic.AddInt32(&early, 1)
		}
	}

	r1 := h.connect(t, "R", "R1")
	r2 := h.connect(t, "R", "R2")
	r1.onSend = checkStored
	r2.onSend = checkStored

	sessions := make([]*fakeSession, 0, senders)
	for _, id := range userIDs[1:] {
		s := h.connect(t, id, id+"-1")
		s.onSend = checkStored
		sessions = append(sessions, s)
	}

	frame := Frame{Event: EventSendMessage, Data: json.RawMessage(`{"receiverId":"R","content":"hi"}`)}
	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *fakeSession) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				h.dispatcher.Dispatch(s, frame)
			}
		}(s)
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&early), "event fanned out before its message was stored")

	commits := h.store.commits()
	require.Len(t, commits, senders*perSender)
	committed := make(map[string]bool, len(commits))
	for _, id := range commits {
		committed[id] = true
	}

	for _, r := range []*fakeSession{r1, r2} {
		got := r.named("receive_message")
		require.Len(t, got, senders*perSender)
		for _, ev := range got {
			assert.True(t, committed[ev.(ReceiveMessage).ID])
		}
	}
	for _, s := range sessions {
		assert.Empty(t, s.named("message_error"))
		assert.Len(t, s.named("message_sent"), perSender)
	}
}

func TestDelivery_MarkReadOnlyByReceiver(t *testing.T) {
	h := newHarness(t, "A", "B")
	a1 := h.connect(t, "A", "A1")
	b1 := h.connect(t, "B", "B1")
	id := h.sendText(t, b1, "A", "hi")

	h.emit(t, b1, EventMarkMessageRead, map[string]string{"messageId": id})

	errs := b1.named("message_error")
	require.Len(t, errs, 1)
	assert.Equal(t, common.ReasonNotReceiver, errs[0].(MessageError).Reason)
	assert.Equal(t, id, errs[0].(MessageError).MessageID)
	assert.False(t, h.store.get(t, id).Read)

	h.emit(t, a1, EventMarkMessageRead, "does-not-exist")
	errs = a1.named("message_error")
	require.Len(t, errs, 1)
	assert.Equal(t, common.ReasonMessageNotFound, errs[0].(MessageError).Reason)
}

func TestDelivery_ReadTimestampSetOnce(t *testing.T) {
	h := newHarness(t, "A", "B")
	a1 := h.connect(t, "A", "A1")
	b1 := h.connect(t, "B", "B1")
	id := h.sendText(t, b1, "A", "hi")

	h.emit(t, a1, EventMarkMessageRead, map[string]string{"messageId": id})
	first := *h.store.get(t, id).ReadAt
	h.emit(t, a1, EventMarkMessageRead, map[string]string{"messageId": id})

	assert.Equal(t, first, *h.store.get(t, id).ReadAt)
	reads := b1.named("message_read")
	require.Len(t, reads, 2)
	assert.Equal(t, reads[0].(MessageRead).ReadAt, reads[1].(MessageRead).ReadAt)
}

func TestDelivery_SeenIsDirectionScoped(t *testing.T) {
	h := newHarness(t, "A", "B")
	a1 := h.connect(t, "A", "A1")
	a2 := h.connect(t, "A", "A2")
	b1 := h.connect(t, "B", "B1")

	fromA1 := h.sendText(t, a1, "B", "one")
	fromA2 := h.sendText(t, a1, "B", "two")
	fromB := h.sendText(t, b1, "A", "three")

	h.emit(t, b1, EventMessageSeen, map[string]string{"senderId": "A", "receiverId": "B"})

	assert.True(t, h.store.get(t, fromA1).Seen)
	assert.True(t, h.store.get(t, fromA2).Seen)
	assert.True(t, h.store.get(t, fromA2).Read)
	assert.False(t, h.store.get(t, fromB).Seen, "the opposite direction is untouched")

	for _, s := range []*fakeSession{a1, a2} {
		seen := s.named("messages_seen")
		require.Len(t, seen, 1, s.ID())
		ev := seen[0].(MessagesSeen)
		assert.Equal(t, "B", ev.ReceiverID)
		assert.Equal(t, "A", ev.SenderID)
		assert.Equal(t, int64(2), ev.Count)
	}
	assert.Empty(t, b1.named("messages_seen"))

	h.emit(t, b1, EventMessageSeen, map[string]string{"senderId": "A", "receiverId": "B"})
	seen := a1.named("messages_seen")
	require.Len(t, seen, 2, "the sender is told even when nothing changed")
	assert.Equal(t, int64(0), seen[1].(MessagesSeen).Count)
}

func TestDelivery_SeenOnlyByReceiver(t *testing.T) {
	h := newHarness(t, "A", "B")
	a1 := h.connect(t, "A", "A1")
	h.connect(t, "B", "B1")

	h.emit(t, a1, EventMessageSeen, map[string]string{"senderId": "A", "receiverId": "B"})

	errs := a1.named("message_error")
	require.Len(t, errs, 1)
	assert.Equal(t, common.ReasonNotReceiver, errs[0].(MessageError).Reason)
}

func TestDeletion_ForMe(t *testing.T) {
	h := newHarness(t, "A", "B")
	a1 := h.connect(t, "A", "A1")
	a2 := h.connect(t, "A", "A2")
	b1 := h.connect(t, "B", "B1")
	id := h.sendText(t, b1, "A", "hi")
	b1.reset()

	h.emit(t, a1, EventDeleteMessageForMe, map[string]string{"messageId": id})
	h.emit(t, a1, EventDeleteMessageForMe, map[string]string{"messageId": id})

	for _, s := range []*fakeSession{a1, a2} {
		assert.Len(t, s.named("message_deleted_for_me"), 2, s.ID())
	}
	assert.Empty(t, b1.received(), "the peer is never told")

	stored := h.store.get(t, id)
	assert.Equal(t, []string{"A"}, stored.DeletedFor)
	assert.Equal(t, "hi", stored.Content, "tombstones never touch content")
}

func TestDeletion_ForMeRequiresParticipant(t *testing.T) {
	h := newHarness(t, "A", "B", "C")
	h.connect(t, "A", "A1")
	b1 := h.connect(t, "B", "B1")
	c1 := h.connect(t, "C", "C1")
	id := h.sendText(t, b1, "A", "hi")

	h.emit(t, c1, EventDeleteMessageForMe, map[string]string{"messageId": id})

	errs := c1.named("message_error")
	require.Len(t, errs, 1)
	assert.Equal(t, common.ReasonNotParticipant, errs[0].(MessageError).Reason)
	assert.Empty(t, h.store.get(t, id).DeletedFor)
}

func TestDeletion_ForEveryone(t *testing.T) {
	h := newHarness(t, "A", "B")
	a1 := h.connect(t, "A", "A1")
	a2 := h.connect(t, "A", "A2")
	b1 := h.connect(t, "B", "B1")
	id := h.sendText(t, b1, "A", "secret")

	t.Run("non-sender is rejected", func(t *testing.T) {
		h.emit(t, a1, EventDeleteMessageForEveryone, map[string]string{"messageId": id, "peerId": "B"})

		errs := a1.named("message_error")
		require.Len(t, errs, 1)
		assert.Equal(t, common.ReasonNotSender, errs[0].(MessageError).Reason)
		stored := h.store.get(t, id)
		assert.Equal(t, "secret", stored.Content)
		assert.Equal(t, common.MessageKindText, stored.Kind)
		assert.Empty(t, b1.named("message_deleted"))
	})

	t.Run("sender redacts", func(t *testing.T) {
		h.emit(t, b1, EventDeleteMessageForEveryone, map[string]string{"messageId": id, "peerId": "someone-else"})

		stored := h.store.get(t, id)
		assert.Equal(t, common.MessageKindDeleted, stored.Kind)
		assert.Empty(t, stored.Content)

		confirms := b1.named("message_deleted_for_everyone")
		require.Len(t, confirms, 1)
		assert.False(t, confirms[0].(MessageDeletedForEveryone).AlreadyDeleted)

		for _, s := range []*fakeSession{a1, a2} {
			deleted := s.named("message_deleted")
			require.Len(t, deleted, 1, "peer resolved from the stored message: %s", s.ID())
			assert.Equal(t, common.MessageKindDeleted, deleted[0].(MessageDeleted).Kind)
			assert.Equal(t, id, deleted[0].(MessageDeleted).MessageID)
		}
	})

	t.Run("repeat is a re-confirmation", func(t *testing.T) {
		h.emit(t, b1, EventDeleteMessageForEveryone, map[string]string{"messageId": id})

		confirms := b1.named("message_deleted_for_everyone")
		require.Len(t, confirms, 2)
		assert.True(t, confirms[1].(MessageDeletedForEveryone).AlreadyDeleted)
		assert.Len(t, a1.named("message_deleted"), 1, "no second peer fan-out")
	})
}

func TestDeletion_RacingRedactionsFanOutOnce(t *testing.T) {
	const messages = 50

	h := newHarness(t, "A", "B")
	a1 := h.connect(t, "A", "A1")
	b1 := h.connect(t, "B", "B1")
	b2 := h.connect(t, "B", "B2")

	ids := make([]string, messages)
	for i := range ids {
		ids[i] = h.sendText(t, b1, "A", "racing")
	}
	a1.reset()
	b1.reset()
	b2.reset()

	var wg sync.WaitGroup
	for _, s := range []*fakeSession{b1, b2} {
		wg.Add(1)
		go func(s *fakeSession) {
			defer wg.Done()
			for _, id := range ids {
				data, _ := json.Marshal(map[string]string{"messageId": id})
				h.dispatcher.Dispatch(s, Frame{Event: EventDeleteMessageForEveryone, Data: data})
			}
		}(s)
	}
	wg.Wait()

	// Confirmations reach every B connection, so b1 sees both outcomes.
	confirms := b1.named("message_deleted_for_everyone")
	require.Len(t, confirms, 2*messages)
	fresh := make(map[string]int)
	for _, ev := range confirms {
		c := ev.(MessageDeletedForEveryone)
		if !c.AlreadyDeleted {
			fresh[c.MessageID]++
		}
	}
	require.Len(t, fresh, messages)
	for id, n := range fresh {
		assert.Equal(t, 1, n, "exactly one winning redaction for %s", id)
	}
	assert.Len(t, a1.named("message_deleted"), messages, "the peer hears each redaction once")
}

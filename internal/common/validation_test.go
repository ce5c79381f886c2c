package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDraft(t *testing.T) {
	tests := []struct {
		name   string
		draft  MessageDraft
		reason string
	}{
		{name: "valid text", draft: MessageDraft{ReceiverID: "bob", Content: "hi", Kind: MessageKindText}},
		{name: "valid image", draft: MessageDraft{ReceiverID: "bob", Kind: MessageKindImage, MediaURL: "https://cdn/x.png"}},
		{name: "valid shared post", draft: MessageDraft{ReceiverID: "bob", Kind: MessageKindSharedPost, PostRef: "post-1"}},
		{name: "missing receiver", draft: MessageDraft{Content: "hi", Kind: MessageKindText}, reason: ReasonReceiverRequired},
		{name: "self addressed", draft: MessageDraft{ReceiverID: "alice", Content: "hi", Kind: MessageKindText}, reason: ReasonSelfMessage},
		{name: "empty text", draft: MessageDraft{ReceiverID: "bob", Content: "  ", Kind: MessageKindText}, reason: ReasonEmptyContent},
		{name: "unknown kind", draft: MessageDraft{ReceiverID: "bob", Content: "hi", Kind: "sticker"}, reason: ReasonInvalidKind},
		{name: "client sent deleted", draft: MessageDraft{ReceiverID: "bob", Content: "hi", Kind: MessageKindDeleted}, reason: ReasonInvalidKind},
		{name: "image without media", draft: MessageDraft{ReceiverID: "bob", Kind: MessageKindImage}, reason: ReasonMediaRequired},
		{name: "post without ref", draft: MessageDraft{ReceiverID: "bob", Kind: MessageKindSharedPost}, reason: ReasonPostRefRequired},
		{name: "too long", draft: MessageDraft{ReceiverID: "bob", Content: strings.Repeat("a", MaxMessageContentLength+1), Kind: MessageKindText}, reason: ReasonContentTooLong},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDraft("alice", tc.draft)
			if tc.reason == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Equal(t, tc.reason, ReasonOf(err))
		})
	}
}

func TestMessageDraft_Normalize(t *testing.T) {
	d := MessageDraft{ReceiverID: " bob ", MediaURL: "https://cdn/v.mp4", MediaMime: "video/mp4"}
	d.Normalize()
	assert.Equal(t, "bob", d.ReceiverID)
	assert.Equal(t, MessageKindVideo, d.Kind)

	p := MessageDraft{ReceiverID: "bob", PostRef: "post-9"}
	p.Normalize()
	assert.Equal(t, MessageKindSharedPost, p.Kind)

	txt := MessageDraft{ReceiverID: "bob", Content: "yo"}
	txt.Normalize()
	assert.Equal(t, MessageKindText, txt.Kind)
}

package service

import (
	"context"
	"errors"
	"strings"

	"gosocial/internal/chat/repository"
	"gosocial/internal/common"
	"gosocial/internal/dbmongo"
	"gosocial/internal/dbmysql"

	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/collaborators_mock.go -package=mocks gosocial/internal/chat/service UserDirectory,MediaStore
//go:generate mockgen -destination=mocks/message_store_mock.go -package=mocks gosocial/internal/chat/repository MessageStore

// UserDirectory resolves user ids. A missing user is (nil, nil).
type UserDirectory interface {
	FindByID(ctx context.Context, userID string) (*dbmysql.User, error)
}

// MediaStore resolves blob ownership and removes blobs. A missing blob is a
// NotFound error from FileOwner.
type MediaStore interface {
	FileOwner(ctx context.Context, fileID string) (string, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// ChatService owns the message state machine: create, read, seen, tombstone, redact.
type ChatService interface {
	SendMessage(ctx context.Context, senderID string, draft common.MessageDraft, clientMsgID string) (*SentMessage, error)
	MarkRead(ctx context.Context, readerID, messageID string) (*dbmongo.Message, error)
	MarkSeen(ctx context.Context, callerID, senderID, receiverID string) (int64, error)
	DeleteForMe(ctx context.Context, requesterID, messageID string) (*dbmongo.Message, error)
	DeleteForEveryone(ctx context.Context, requesterID, messageID string) (*Redaction, error)
	Conversation(ctx context.Context, userID, peerID string, limit, offset int64) ([]*dbmongo.Message, error)
	ClearConversation(ctx context.Context, userID, peerID string) (int64, error)
}

// SentMessage is a persisted message with both participants resolved.
type SentMessage struct {
	Message  *dbmongo.Message
	Sender   *dbmysql.User
	Receiver *dbmysql.User
}

type Redaction struct {
	Message        *dbmongo.Message
	AlreadyDeleted bool
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type chatService struct {
	repo   repository.MessageStore
	users  UserDirectory
	media  MediaStore
	logger *zap.Logger
}

// Constructor used in DI/wire. With a nil media store, client file ids are
// dropped and redaction never purges.
func NewChatService(r repository.MessageStore, users UserDirectory, media MediaStore, logger *zap.Logger) ChatService {
	return &chatService{
		repo:   r,
		users:  users,
		media:  media,
		logger: logger.Named("chat"),
	}
}

func (s *chatService) SendMessage(ctx context.Context, senderID string, draft common.MessageDraft, clientMsgID string) (*SentMessage, error) {
	draft.Normalize()
	if err := common.ValidateDraft(senderID, draft); err != nil {
		return nil, err
	}

	receiver, err := s.users.FindByID(ctx, draft.ReceiverID)
	if err != nil {
		return nil, common.Infrastructure("failed to look up receiver", err)
	}
	if receiver == nil {
		return nil, common.NotFound(common.ReasonReceiverNotFound, "receiver does not exist")
	}

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, common.Infrastructure("failed to look up sender", err)
	}
	if sender == nil {
		sender = &dbmysql.User{UserID: senderID}
	}

	msg := &dbmongo.Message{
		SenderID:    senderID,
		ReceiverID:  draft.ReceiverID,
		Content:     draft.Content,
		Kind:        draft.Kind,
		ClientMsgID: strings.TrimSpace(clientMsgID),
	}
	if draft.Kind.RequiresMedia() {
		fileID, err := s.ownedFileID(ctx, senderID, draft.MediaFileID)
		if err != nil {
			return nil, err
		}
		msg.Media = &dbmongo.MediaRef{FileID: fileID, URL: draft.MediaURL, MimeType: draft.MediaMime}
	}
	if draft.Kind == common.MessageKindSharedPost {
		msg.PostRef = draft.PostRef
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, common.Infrastructure("failed to save message", err)
	}

	return &SentMessage{Message: msg, Sender: sender, Receiver: receiver}, nil
}

// MarkRead is restricted to the receiver. The read timestamp is set once.
func (s *chatService) MarkRead(ctx context.Context, readerID, messageID string) (*dbmongo.Message, error) {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ReceiverID != readerID {
		return nil, common.Forbidden(common.ReasonNotReceiver, "only the receiver can mark a message read")
	}
	if msg.Read {
		return msg, nil
	}

	updated, err := s.repo.UpdateFlags(ctx, msg.IDHex(), repository.FlagUpdate{Read: true})
	if err != nil {
		return nil, s.storeError("failed to mark message read", err)
	}
	return updated, nil
}

// MarkSeen flags senderID -> receiverID messages as seen. Only the receiver may call it.
func (s *chatService) MarkSeen(ctx context.Context, callerID, senderID, receiverID string) (int64, error) {
	senderID, receiverID = strings.TrimSpace(senderID), strings.TrimSpace(receiverID)
	if senderID == "" || receiverID == "" {
		return 0, common.Validation(common.ReasonParticipantMissing, "senderId and receiverId are required")
	}
	if receiverID != callerID {
		return 0, common.Forbidden(common.ReasonNotReceiver, "only the receiver can mark messages seen")
	}
	if senderID == receiverID {
		return 0, common.Validation(common.ReasonSelfMessage, "sender and receiver must differ")
	}

	count, err := s.repo.MarkSeen(ctx, senderID, receiverID)
	if err != nil {
		return 0, common.Infrastructure("failed to mark messages seen", err)
	}
	return count, nil
}

func (s *chatService) DeleteForMe(ctx context.Context, requesterID, messageID string) (*dbmongo.Message, error) {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.HasParticipant(requesterID) {
		return nil, common.Forbidden(common.ReasonNotParticipant, "not a participant of this message")
	}
	if msg.DeletedForUser(requesterID) {
		return msg, nil
	}

	updated, err := s.repo.AddTombstone(ctx, msg.IDHex(), requesterID)
	if err != nil {
		return nil, s.storeError("failed to delete message", err)
	}
	return updated, nil
}

// DeleteForEveryone redacts a message. Only the sender may do it; repeating it is a no-op.
func (s *chatService) DeleteForEveryone(ctx context.Context, requesterID, messageID string) (*Redaction, error) {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != requesterID {
		return nil, common.Forbidden(common.ReasonNotSender, "only the sender can delete for everyone")
	}
	if msg.IsDeleted() {
		return &Redaction{Message: msg, AlreadyDeleted: true}, nil
	}

	updated, err := s.repo.UpdateFlags(ctx, msg.IDHex(), repository.FlagUpdate{Deleted: true})
	if errors.Is(err, repository.ErrAlreadyRedacted) {
		msg.Redact()
		return &Redaction{Message: msg, AlreadyDeleted: true}, nil
	}
	if err != nil {
		return nil, s.storeError("failed to delete message", err)
	}

	if msg.Media != nil && msg.Media.FileID != "" {
		s.purgeMedia(ctx, messageID, msg.Media.FileID)
	}

	return &Redaction{Message: updated}, nil
}

// ownedFileID checks that a client-supplied blob id was uploaded by the
// sender. Without a media store the id is dropped so it can never be purged.
func (s *chatService) ownedFileID(ctx context.Context, senderID, fileID string) (string, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" || s.media == nil {
		return "", nil
	}

	owner, err := s.media.FileOwner(ctx, fileID)
	if err != nil {
		if common.IsNotFound(err) {
			return "", err
		}
		return "", common.Infrastructure("failed to look up media", err)
	}
	if owner != senderID {
		return "", common.Forbidden(common.ReasonMediaNotOwned, "media was uploaded by another user")
	}
	return fileID, nil
}

// purgeMedia removes a blob once no message references it. Failures are
// logged only; the redaction has already happened.
func (s *chatService) purgeMedia(ctx context.Context, messageID, fileID string) {
	if s.media == nil {
		return
	}
	logger := s.logger.With(zap.String("messageID", messageID), zap.String("fileID", fileID))

	refs, err := s.repo.CountMediaRefs(ctx, fileID)
	if err != nil {
		logger.Warn("media reference count failed, keeping blob", zap.Error(err))
		return
	}
	if refs > 0 {
		logger.Debug("media still referenced, keeping blob", zap.Int64("refs", refs))
		return
	}
	if err := s.media.DeleteFile(ctx, fileID); err != nil {
		logger.Warn("media purge failed", zap.Error(err))
	}
}

// Conversation returns the caller's view of a conversation, without their tombstoned messages.
func (s *chatService) Conversation(ctx context.Context, userID, peerID string, limit, offset int64) ([]*dbmongo.Message, error) {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return nil, common.Validation(common.ReasonPeerRequired, "peer id is required")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := s.repo.FindConversation(ctx, userID, peerID, repository.ConversationQuery{
		Limit:             limit,
		Offset:            offset,
		ExcludeDeletedFor: userID,
	})
	if err != nil {
		return nil, common.Infrastructure("failed to load conversation", err)
	}
	return messages, nil
}

func (s *chatService) ClearConversation(ctx context.Context, userID, peerID string) (int64, error) {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return 0, common.Validation(common.ReasonPeerRequired, "peer id is required")
	}
	if peerID == userID {
		return 0, common.Validation(common.ReasonSelfMessage, "cannot clear a conversation with yourself")
	}

	count, err := s.repo.ClearConversation(ctx, userID, peerID)
	if err != nil {
		return 0, common.Infrastructure("failed to clear conversation", err)
	}
	s.logger.Info("conversation cleared",
		zap.String("userID", userID),
		zap.String("peerID", peerID),
		zap.Int64("deleted", count))
	return count, nil
}

func (s *chatService) load(ctx context.Context, messageID string) (*dbmongo.Message, error) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return nil, common.Validation(common.ReasonMessageIDRequired, "messageId is required")
	}
	msg, err := s.repo.FindByID(ctx, messageID)
	if err != nil {
		return nil, s.storeError("failed to load message", err)
	}
	return msg, nil
}

func (s *chatService) storeError(message string, err error) error {
	if errors.Is(err, repository.ErrMessageNotFound) {
		return common.NotFound(common.ReasonMessageNotFound, "message not found")
	}
	return common.Infrastructure(message, err)
}

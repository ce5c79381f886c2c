package common

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so the transport layer knows who gets told about it.
type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindAuthorization  ErrorKind = "authorization"
	KindInfrastructure ErrorKind = "infrastructure"
)

// Reason strings sent to clients. They are part of the wire contract.
const (
	ReasonMissingToken         = "missing_token"
	ReasonMalformedToken       = "malformed_token"
	ReasonExpiredToken         = "expired_token"
	ReasonInvalidSignature     = "invalid_signature"
	ReasonInvalidToken         = "invalid_token"
	ReasonUnknownUser          = "unknown_user"
	ReasonReceiverRequired     = "receiver_required"
	ReasonEmptyContent         = "empty_content"
	ReasonMediaRequired        = "media_required"
	ReasonPostRefRequired      = "post_ref_required"
	ReasonInvalidKind          = "invalid_kind"
	ReasonSelfMessage          = "self_message"
	ReasonReceiverNotFound     = "receiver_not_found"
	ReasonMessageNotFound      = "message_not_found"
	ReasonMessageIDRequired    = "message_id_required"
	ReasonNotSender            = "not_sender"
	ReasonNotParticipant       = "not_participant"
	ReasonNotReceiver          = "not_receiver"
	ReasonPeerRequired         = "peer_required"
	ReasonSelfFollow           = "self_follow"
	ReasonTargetRequired       = "target_required"
	ReasonTargetNotFound       = "target_not_found"
	ReasonInvalidRoutingKey    = "invalid_routing_key"
	ReasonForeignRoutingKey    = "foreign_routing_key"
	ReasonMalformedPayload     = "malformed_payload"
	ReasonUnknownEvent         = "unknown_event"
	ReasonRateLimited          = "rate_limited"
	ReasonInternal             = "internal_error"
	ReasonContentTooLong       = "content_too_long"
	ReasonParticipantMissing   = "participant_required"
	ReasonNotificationNotFound = "notification_not_found"
	ReasonHandshakeTimeout     = "handshake_timeout"
	ReasonHandshakeRequired    = "handshake_required"
	ReasonTooManyConnections   = "too_many_connections"
	ReasonMediaNotFound        = "media_not_found"
	ReasonFileRequired         = "file_required"
	ReasonUnsupportedMedia     = "unsupported_media"
	ReasonMediaNotOwned        = "media_not_owned"
)

// Error is the single failure type crossing the service/transport boundary.
type Error struct {
	Kind    ErrorKind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(reason, message string) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: message}
}

func NotFound(reason, message string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason, Message: message}
}

func Forbidden(reason, message string) *Error {
	return &Error{Kind: KindAuthorization, Reason: reason, Message: message}
}

func Unauthenticated(reason, message string, err error) *Error {
	return &Error{Kind: KindAuthentication, Reason: reason, Message: message, Err: err}
}

// Infrastructure wraps a store or network failure. The client only ever sees
// ReasonInternal for these.
func Infrastructure(message string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Reason: ReasonInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, treating anything unclassified as infrastructure.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfrastructure
}

// ReasonOf returns the machine-readable reason for err.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Reason != "" {
		return e.Reason
	}
	return ReasonInternal
}

// PublicMessage is the human-readable text that is safe to send to a client.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInfrastructure {
		return e.Message
	}
	return "something went wrong, please retry"
}

func IsValidation(err error) bool    { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }
func IsAuthorization(err error) bool { return KindOf(err) == KindAuthorization }

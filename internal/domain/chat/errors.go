package chat

import "errors"

var (
	ErrResolutionFailed = errors.New("chat: conversation resolution failed")
	ErrFetchFailed      = errors.New("chat: message fetch failed")
	ErrSendRejected     = errors.New("chat: message send rejected")

	ErrTripleIncomplete     = errors.New("chat: listing, guest and host are required")
	ErrEmptyBody            = errors.New("chat: message body is empty")
	ErrNoConversation       = errors.New("chat: conversation is not resolved")
	ErrUnknownViewer        = errors.New("chat: viewer is unknown")
	ErrTornDown             = errors.New("chat: conversation view is torn down")
	ErrNotRetryable         = errors.New("chat: message is not an unsent provisional entry")
	ErrConversationNotFound = errors.New("chat: conversation not found")
	ErrSenderNotParticipant = errors.New("chat: sender is not a participant")
)

package engine

import "errors"

// Construction and submission errors.
var (
	ErrNoConversation = errors.New("engine: conversation manager is required")
	ErrNoStore        = errors.New("engine: store is required")
	ErrNoDispatcher   = errors.New("engine: dispatcher is required")
	ErrNoSender       = errors.New("engine: sender is required")
	ErrEngineStopped  = errors.New("engine: stopped")
	ErrInboxFull      = errors.New("engine: inbox full")
)

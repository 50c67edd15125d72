package tui

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("tui: chat service is required")

// ErrMissingSession is returned when no session is provided.
var ErrMissingSession = errors.New("tui: session is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")

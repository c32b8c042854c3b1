package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgUserIDNotFound     = "User ID not found"
	ErrMsgInvalidID          = "Invalid ID"
)

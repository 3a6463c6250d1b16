package unidata

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference.
//
// # Validation Errors (VAL)
//
//	VAL002 - Invalid number: a value could not be read as a number
//	VAL005 - Column not found: a requested column is not in the file
//	VAL007 - Wrong column type: the column holds the wrong kind of values
//	VAL008 - Negative value: a column that must be non-negative is not
//	VAL009 - Invalid argument: a column reference or option is malformed
//	VAL010 - Invalid table name: the save target has no usable characters
//
// # File Errors (FILE)
//
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE004 - No file provided
//	FILE005 - Empty file
//
// # Database Errors (DB)
//
//	DB001 - Persistence requested but no database is configured
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//
// # Run Errors (UPL)
//
//	UPL002 - Too many concurrent runs
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//
// # Default (ERR000)
//
// Errors of this package are matched by category with errors.Is; anything else
// falls back to case-insensitive substring patterns, first match wins.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/unidata/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgInvalidNumber = UserMessage{
		Message: "Invalid number format detected",
		Action:  "Check the column for values that are not amounts",
		Code:    "VAL002",
	}
	msgColumnNotFound = UserMessage{
		Message: "Expected column not found in file",
		Action:  "Verify the column names match the file header exactly",
		Code:    "VAL005",
	}
	msgTypeMismatch = UserMessage{
		Message: "Column holds the wrong type of values for this step",
		Action:  "Format the column as currency before checking or rounding it",
		Code:    "VAL007",
	}
	msgNegative = UserMessage{
		Message: "A column contains negative values",
		Action:  "Review the original data file",
		Code:    "VAL008",
	}
	msgInvalidArgument = UserMessage{
		Message: "Invalid column reference or option",
		Action:  fmt.Sprintf("Column names must be non-empty text and precision a whole number from 0 to %d", MaxPrecision),
		Code:    "VAL009",
	}
)

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is matched in order after the category checks in MapError.
// More specific patterns must come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "invalid table name",
		msg: UserMessage{
			Message: "Table name cannot be used",
			Action:  "Use a name containing letters or digits",
			Code:    "VAL010",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure every row has the same number of fields as the header",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with a header row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "too many",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		pattern: "database not configured",
		msg: UserMessage{
			Message: "Saving results is not enabled",
			Action:  "Set DATABASE_URL or run without persisting",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch {
	case errors.Is(err, table.ErrColumnNotFound):
		return msgColumnNotFound
	case errors.Is(err, ErrInvalidArgument):
		return msgInvalidArgument
	case errors.Is(err, ErrTypeMismatch):
		return msgTypeMismatch
	case errors.Is(err, ErrParse):
		return msgInvalidNumber
	case errors.Is(err, ErrNegativeValue):
		return msgNegative
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action", naming the offending column when known.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	if col, ok := OffendingColumn(err); ok {
		return fmt.Sprintf("%s: %q (Code: %s). %s", msg.Message, col, msg.Code, msg.Action)
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

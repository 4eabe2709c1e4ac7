package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"chatsync/internal/constants"
	"chatsync/internal/errors"
)

// ValidateIdentifier validates a user, tenant, channel or thread identifier.
// Identifiers are opaque but bounded: letters, digits, underscores and dashes.
func ValidateIdentifier(kind, id string) error {
	if id == "" {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("%s cannot be empty", kind))
	}

	if len(id) > constants.MaxIdentifierLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s too long (max %d characters)", kind, constants.MaxIdentifierLength))
	}

	for _, char := range id {
		if !unicode.IsLetter(char) && !unicode.IsDigit(char) && char != '_' && char != '-' {
			return errors.New(errors.ErrCodeInvalidInput,
				fmt.Sprintf("%s must contain only letters, numbers, underscores, and dashes", kind))
		}
	}

	return nil
}

// ValidateUserID validates a user identifier.
func ValidateUserID(userID string) error {
	return ValidateIdentifier("user id", userID)
}

// ValidateTenantID validates a tenant identifier.
func ValidateTenantID(tenantID string) error {
	return ValidateIdentifier("tenant id", tenantID)
}

// ValidateRoomName validates a room name: a "channel:" or "dm:" prefix
// followed by a valid identifier.
func ValidateRoomName(room string) error {
	if room == "" {
		return errors.New(errors.ErrCodeInvalidInput, "room name cannot be empty")
	}

	var id string
	switch {
	case strings.HasPrefix(room, "channel:"):
		id = strings.TrimPrefix(room, "channel:")
	case strings.HasPrefix(room, "dm:"):
		id = strings.TrimPrefix(room, "dm:")
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			"room name must start with \"channel:\" or \"dm:\"")
	}

	return ValidateIdentifier("room id", id)
}

// ValidateMessageBody validates a message body: non-blank, valid UTF-8 and
// within the length limit. Bodies are otherwise arbitrary text.
func ValidateMessageBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "message body cannot be empty")
	}

	if len(body) > constants.MaxMessageBodyLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("message body too long (max %d bytes)", constants.MaxMessageBodyLength))
	}

	if !utf8.ValidString(body) {
		return errors.New(errors.ErrCodeInvalidInput, "message body is not valid UTF-8")
	}

	return nil
}

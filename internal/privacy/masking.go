package privacy

import (
	"strings"
)

// MaskUserID masks a user identifier showing only the last 4 characters.
// Example: "user-8f14e45fceea" -> "********ceea"
func MaskUserID(userID string) string {
	return maskTail(userID, 4)
}

// MaskTenantID masks a tenant identifier showing only the last 4 characters.
func MaskTenantID(tenantID string) string {
	return maskTail(tenantID, 4)
}

// MaskRoom masks the identifier part of a room name while keeping its kind
// prefix visible. Example: "channel:1234567890" -> "channel:******7890"
func MaskRoom(room string) string {
	if room == "" {
		return ""
	}

	if idx := strings.Index(room, ":"); idx >= 0 {
		return room[:idx+1] + maskTail(room[idx+1:], 4)
	}
	return maskTail(room, 4)
}

func maskTail(s string, visible int) string {
	if s == "" {
		return ""
	}
	if len(s) <= visible {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-visible) + s[len(s)-visible:]
}

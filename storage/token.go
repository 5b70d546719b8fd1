package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Opaque token format: userId:grantId:secret. The secret never appears in
// storage; only the SHA-256 digest of the full token string does.
const tokenPartCount = 3

// TokenKey builds the storage key for an opaque token record:
//
//	token:{userId}:{grantId}:{sha256hex(token)}
func TokenKey(userID, grantID, token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("token:%s:%s:%s", userID, grantID, hex.EncodeToString(sum[:]))
}

// AllowlistKey builds the storage key for an allowlisted email:
//
//	allowed_email:{lowercased email}
func AllowlistKey(email string) string {
	return "allowed_email:" + strings.ToLower(email)
}

// ParseToken splits an opaque token into its userId and grantId parts.
// Returns ok=false when the token does not have exactly three parts;
// callers must treat that as "inactive", never as an error, so the
// format is not leaked to introspection callers.
func ParseToken(token string) (userID, grantID string, ok bool) {
	parts := strings.Split(token, ":")
	if len(parts) != tokenPartCount {
		return "", "", false
	}
	if parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

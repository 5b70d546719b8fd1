package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// PKCE code challenge methods (RFC 7636 §4.2).
const (
	CodeChallengeMethodS256  = "S256"
	CodeChallengeMethodPlain = "plain"
)

// IsSupportedCodeChallengeMethod reports whether the method is one this
// server verifies. An empty method is valid: RFC 7636 defaults to "plain".
func IsSupportedCodeChallengeMethod(method string) bool {
	switch method {
	case "", CodeChallengeMethodS256, CodeChallengeMethodPlain:
		return true
	}
	return false
}

// VerifyCodeChallenge checks a token-request code_verifier against the
// code_challenge recorded at authorization time, in constant time.
func VerifyCodeChallenge(challenge, method, verifier string) bool {
	if challenge == "" || verifier == "" {
		return false
	}

	switch method {
	case CodeChallengeMethodS256:
		sum := sha256.Sum256([]byte(verifier))
		computed := base64.RawURLEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
	case CodeChallengeMethodPlain, "":
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	}
	return false
}

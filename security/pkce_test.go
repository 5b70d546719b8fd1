package security

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestVerifyCodeChallenge_S256(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	if !VerifyCodeChallenge(challenge, CodeChallengeMethodS256, verifier) {
		t.Error("VerifyCodeChallenge() = false for a matching S256 pair")
	}
	if VerifyCodeChallenge(challenge, CodeChallengeMethodS256, verifier+"x") {
		t.Error("VerifyCodeChallenge() = true for a wrong verifier")
	}
	// The challenge itself is not the verifier
	if VerifyCodeChallenge(challenge, CodeChallengeMethodS256, challenge) {
		t.Error("VerifyCodeChallenge() = true when the challenge is replayed as the verifier")
	}
}

func TestVerifyCodeChallenge_Plain(t *testing.T) {
	if !VerifyCodeChallenge("plain-value", CodeChallengeMethodPlain, "plain-value") {
		t.Error("VerifyCodeChallenge() = false for a matching plain pair")
	}
	// Empty method defaults to plain per RFC 7636
	if !VerifyCodeChallenge("plain-value", "", "plain-value") {
		t.Error("VerifyCodeChallenge() = false for empty method with matching values")
	}
	if VerifyCodeChallenge("plain-value", CodeChallengeMethodPlain, "other") {
		t.Error("VerifyCodeChallenge() = true for mismatched plain values")
	}
}

func TestVerifyCodeChallenge_Rejections(t *testing.T) {
	if VerifyCodeChallenge("", CodeChallengeMethodS256, "verifier") {
		t.Error("VerifyCodeChallenge() = true with empty challenge")
	}
	if VerifyCodeChallenge("challenge", CodeChallengeMethodS256, "") {
		t.Error("VerifyCodeChallenge() = true with empty verifier")
	}
	if VerifyCodeChallenge("challenge", "S512", "challenge") {
		t.Error("VerifyCodeChallenge() = true for an unknown method")
	}
}

func TestIsSupportedCodeChallengeMethod(t *testing.T) {
	for _, method := range []string{"", "S256", "plain"} {
		if !IsSupportedCodeChallengeMethod(method) {
			t.Errorf("IsSupportedCodeChallengeMethod(%q) = false", method)
		}
	}
	for _, method := range []string{"S512", "s256", "PLAIN"} {
		if IsSupportedCodeChallengeMethod(method) {
			t.Errorf("IsSupportedCodeChallengeMethod(%q) = true", method)
		}
	}
}

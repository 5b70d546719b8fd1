package security

import (
	"strings"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	return key
}

func TestSealerRoundTrip(t *testing.T) {
	sealer, err := NewSealer(testKey(t), "session-binding")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}

	plaintext := []byte(`{"state_token":"abc123","iat":1700000000}`)
	sealed, err := sealer.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	if strings.Contains(sealed, "abc123") {
		t.Error("sealed value leaks plaintext")
	}

	opened, err := sealer.Open(sealed)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if string(opened) != string(plaintext) {
		t.Errorf("Open() = %q, want %q", opened, plaintext)
	}
}

func TestSealerPurposeBinding(t *testing.T) {
	key := testKey(t)

	sessions, err := NewSealer(key, "session-binding")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}
	approvals, err := NewSealer(key, "client-approval")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}

	sealed, err := sessions.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	// Same master key, different purpose: must not open
	if _, err := approvals.Open(sealed); err == nil {
		t.Error("sealed value opened under a different purpose")
	}
}

func TestSealerTamperDetection(t *testing.T) {
	sealer, err := NewSealer(testKey(t), "session-binding")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}

	sealed, err := sealer.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	// Flip a character in the middle of the ciphertext
	tampered := []byte(sealed)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	if _, err := sealer.Open(string(tampered)); err == nil {
		t.Error("tampered value opened successfully")
	}

	if _, err := sealer.Open("not-base64!!!"); err == nil {
		t.Error("invalid base64 opened successfully")
	}

	if _, err := sealer.Open("c2hvcnQ"); err == nil {
		t.Error("truncated value opened successfully")
	}
}

func TestNewSealerValidation(t *testing.T) {
	if _, err := NewSealer([]byte("short"), "p"); err == nil {
		t.Error("NewSealer() accepted a short key")
	}
	if _, err := NewSealer(testKey(t), ""); err == nil {
		t.Error("NewSealer() accepted an empty purpose")
	}
}

func TestKeyBase64RoundTrip(t *testing.T) {
	key := testKey(t)
	decoded, err := KeyFromBase64(KeyToBase64(key))
	if err != nil {
		t.Fatalf("KeyFromBase64() error = %v", err)
	}
	if string(decoded) != string(key) {
		t.Error("key round trip mismatch")
	}

	if _, err := KeyFromBase64("dG9vc2hvcnQ="); err == nil {
		t.Error("KeyFromBase64() accepted a short key")
	}
}

func TestGenerateRandomToken(t *testing.T) {
	a, err := GenerateRandomToken(32)
	if err != nil {
		t.Fatalf("GenerateRandomToken() error = %v", err)
	}
	b, err := GenerateRandomToken(32)
	if err != nil {
		t.Fatalf("GenerateRandomToken() error = %v", err)
	}
	if a == b {
		t.Error("two random tokens are equal")
	}
	// 32 bytes base64url-encoded without padding is 43 characters
	if len(a) != 43 {
		t.Errorf("token length = %d, want 43", len(a))
	}
}

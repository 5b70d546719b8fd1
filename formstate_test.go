package authproxy

import (
	"encoding/base64"
	"testing"

	"github.com/authriver/mcp-oauth-proxy/internal/testutil"
	"github.com/authriver/mcp-oauth-proxy/storage"
)

func TestFormStateRoundTrip(t *testing.T) {
	req := testutil.TestAuthState().Request

	encoded, err := encodeFormState(req)
	testutil.AssertNoError(t, err)

	decoded, err := decodeFormState(encoded)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, decoded.ClientID, req.ClientID)
	testutil.AssertEqual(t, decoded.RedirectURI, req.RedirectURI)
	testutil.AssertEqual(t, decoded.State, req.State)
	if len(decoded.Scope) != len(req.Scope) {
		t.Errorf("scope = %v, want %v", decoded.Scope, req.Scope)
	}
}

func TestDecodeFormState_Rejections(t *testing.T) {
	missingFields, _ := encodeFormState(storage.PendingAuthRequest{})

	tests := []struct {
		name    string
		encoded string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"not json", base64.RawURLEncoding.EncodeToString([]byte("plain text"))},
		{"missing required fields", missingFields},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeFormState(tt.encoded); err == nil {
				t.Error("decodeFormState() accepted invalid input")
			}
		})
	}
}

package authproxy

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/authriver/mcp-oauth-proxy/storage"
)

// formState is the opaque blob round-tripped through the consent form's
// hidden field. It carries the pending request so the POST handler does not
// need a server-side lookup before the user decides.
type formState struct {
	Request storage.PendingAuthRequest `json:"oauth_request"`
}

// encodeFormState serializes the pending request for the hidden form field.
func encodeFormState(req storage.PendingAuthRequest) (string, error) {
	payload, err := json.Marshal(formState{Request: req})
	if err != nil {
		return "", fmt.Errorf("failed to marshal form state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// decodeFormState parses the hidden form field back into the pending
// request. Any malformation is a generic decode error; the handler maps it
// to the coalesced authorization failure.
func decodeFormState(encoded string) (storage.PendingAuthRequest, error) {
	var fs formState
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return fs.Request, fmt.Errorf("failed to decode form state: %w", err)
	}
	if err := json.Unmarshal(payload, &fs); err != nil {
		return fs.Request, fmt.Errorf("failed to parse form state: %w", err)
	}
	if fs.Request.ClientID == "" || fs.Request.RedirectURI == "" {
		return fs.Request, fmt.Errorf("form state missing required fields")
	}
	return fs.Request, nil
}

package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func requestWithCSRFCookie(value string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/authorize", nil)
	if value != "" {
		r.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: value})
	}
	return r
}

func TestCSRFTokenRoundTrip(t *testing.T) {
	token, cookie, err := GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken() error = %v", err)
	}

	if cookie.Name != CSRFCookieName {
		t.Errorf("cookie name = %q, want %q", cookie.Name, CSRFCookieName)
	}
	if !cookie.Secure || !cookie.HttpOnly {
		t.Error("CSRF cookie must be Secure and HttpOnly")
	}
	if cookie.Path != "/" || cookie.Domain != "" {
		t.Error("CSRF cookie must be host-only (Path=/, no Domain)")
	}
	if cookie.Value != token {
		t.Error("cookie value differs from returned token")
	}

	if err := ValidateCSRFToken(token, requestWithCSRFCookie(token)); err != nil {
		t.Errorf("ValidateCSRFToken() with matching pair error = %v", err)
	}
}

func TestValidateCSRFToken_Rejections(t *testing.T) {
	token, _, err := GenerateCSRFToken()
	if err != nil {
		t.Fatalf("GenerateCSRFToken() error = %v", err)
	}

	tests := []struct {
		name      string
		formToken string
		cookieVal string
	}{
		{"mismatched tokens", token, "different-value"},
		{"missing cookie", token, ""},
		{"missing form token", "", token},
		{"both missing", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCSRFToken(tt.formToken, requestWithCSRFCookie(tt.cookieVal))
			if err == nil {
				t.Error("ValidateCSRFToken() accepted invalid pair")
			}
		})
	}
}

func TestClearCSRFCookie(t *testing.T) {
	c := ClearCSRFCookie()
	if c.MaxAge != -1 || c.Value != "" {
		t.Errorf("clearing cookie = %+v, want MaxAge=-1 and empty value", c)
	}
}

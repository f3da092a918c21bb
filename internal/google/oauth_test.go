package google

import (
	"strings"
	"testing"
)

func TestConfigure_RejectsEmptyCredentials(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		secret string
	}{
		{"both empty", "", ""},
		{"missing secret", "client-id", ""},
		{"missing id", "", "client-secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Configure(tt.id, tt.secret); err == nil {
				t.Error("Expected error for empty credentials")
			}
		})
	}
}

func TestGetOAuthConfig_CarriesConfiguredCredentials(t *testing.T) {
	if err := Configure("test-client-id", "test-client-secret"); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	conf := GetOAuthConfig()
	if conf.ClientID != "test-client-id" {
		t.Errorf("ClientID = %s, expected test-client-id", conf.ClientID)
	}
	if conf.ClientSecret != "test-client-secret" {
		t.Errorf("ClientSecret = %s, expected test-client-secret", conf.ClientSecret)
	}

	// Calendar scope must be requested; nothing beyond calendar + identity
	found := false
	for _, scope := range conf.Scopes {
		if strings.Contains(scope, "auth/calendar") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected calendar scope in %v", conf.Scopes)
	}
}

func TestHasTokenForAccount_EmptyAccount(t *testing.T) {
	if HasTokenForAccount("") {
		t.Error("Expected false for empty account name")
	}
}

func TestTokenFileForAccount(t *testing.T) {
	def := tokenFileForAccount("default")
	work := tokenFileForAccount("work")

	if def == work {
		t.Error("Expected distinct token files per account")
	}
	if !strings.Contains(work, "google-work.token") {
		t.Errorf("Expected account-qualified file name, got %s", work)
	}
}

package validator_test

import (
	"channelchat-backend/internal/validator"
	"fmt"
	"testing"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		expectedError error
	}{
		{
			name:          "Valid: Standard email",
			email:         "user@example.com",
			expectedError: nil,
		},
		{
			name:          "Valid: Plus sign in local part",
			email:         "user+tag@example.co.uk",
			expectedError: nil,
		},
		{
			name:          "Error: Too long",
			email:         "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa@example.com",
			expectedError: fmt.Errorf("long_email"),
		},
		{
			name:          "Error: Missing @ sign",
			email:         "userexample.com",
			expectedError: fmt.Errorf("bad_format"),
		},
		{
			name:          "Error: Missing TLD",
			email:         "user@domain",
			expectedError: fmt.Errorf("bad_format"),
		},
		{
			name:          "Error: Local part starting with dot",
			email:         ".user@example.com",
			expectedError: fmt.Errorf("bad_format"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Email(tc.email)

			if tc.expectedError == nil {
				if err != nil {
					t.Errorf("Email(%q) failed unexpectedly: got error %v, want nil", tc.email, err)
				}
				return
			}

			if err == nil {
				t.Errorf("Email(%q) passed unexpectedly: got nil, want error %v", tc.email, tc.expectedError)
				return
			}

			if err.Error() != tc.expectedError.Error() {
				t.Errorf("Email(%q) got error %q, want error %q", tc.email, err.Error(), tc.expectedError.Error())
			}
		})
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name          string
		password      string
		expectedError error
	}{
		{
			name:          "Valid: Minimum length",
			password:      "aA1bB2",
			expectedError: nil,
		},
		{
			name:          "Error: Too short",
			password:      "aA1",
			expectedError: fmt.Errorf("short_password"),
		},
		{
			name:          "Error: Too long",
			password:      "aBc123456789012345678901234567890123",
			expectedError: fmt.Errorf("long_password"),
		},
		{
			name:          "Error: Missing lowercase",
			password:      "AABBCC1234",
			expectedError: fmt.Errorf("no_lowercase"),
		},
		{
			name:          "Error: Missing uppercase",
			password:      "aabbcc1234",
			expectedError: fmt.Errorf("no_uppercase"),
		},
		{
			name:          "Error: Missing number",
			password:      "PasswordABC",
			expectedError: fmt.Errorf("no_number"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Password(tc.password)

			if tc.expectedError == nil {
				if err != nil {
					t.Errorf("Password(%q) failed unexpectedly: got error %v, want nil", tc.password, err)
				}
				return
			}

			if err == nil {
				t.Errorf("Password(%q) passed unexpectedly: got nil, want error %v", tc.password, tc.expectedError)
				return
			}

			if err.Error() != tc.expectedError.Error() {
				t.Errorf("Password(%q) got error %q, want error %q", tc.password, err.Error(), tc.expectedError.Error())
			}
		})
	}
}

func TestUsername(t *testing.T) {
	tests := []struct {
		username string
		wantErr  bool
	}{
		{"alice", false},
		{"alice_bob99", false},
		{"ab", true},
		{"has spaces", true},
		{"dotted.name", true},
	}

	for _, tc := range tests {
		err := validator.Username(tc.username)
		if tc.wantErr && err == nil {
			t.Errorf("Username(%q) passed unexpectedly", tc.username)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("Username(%q) failed unexpectedly: %v", tc.username, err)
		}
	}
}

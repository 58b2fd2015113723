package services

import "testing"

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid password", "Studying1", false},
		{"too short", "Abc1", true},
		{"no uppercase", "studying1", true},
		{"no lowercase", "STUDYING1", true},
		{"no digit", "StudyingHard", true},
		{"long and mixed", "CorrectHorse7battery", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.password)
			if tc.wantErr && err == nil {
				t.Errorf("Expected error for %q", tc.password)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected error for %q: %v", tc.password, err)
			}
		})
	}
}

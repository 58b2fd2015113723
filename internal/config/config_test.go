package config

import (
	"os"
	"testing"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "STUDYMAP_TEST_STR", "redis://prod:6379", "redis://localhost:6379", "redis://prod:6379"},
		{"uses default when unset", "STUDYMAP_TEST_STR_2", "", "redis://localhost:6379", "redis://localhost:6379"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses worker count", "STUDYMAP_TEST_INT", "8", 3, 8},
		{"uses default for empty", "STUDYMAP_TEST_INT_2", "", 3, 3},
		{"uses default for non-numeric", "STUDYMAP_TEST_INT_3", "many", 3, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("STUDYMAP_TEST_MISSING")
	mustGetEnv("STUDYMAP_TEST_MISSING")
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	os.Setenv("STUDYMAP_TEST_REQUIRED", "secret123")
	defer os.Unsetenv("STUDYMAP_TEST_REQUIRED")

	result := mustGetEnv("STUDYMAP_TEST_REQUIRED")
	if result != "secret123" {
		t.Errorf("Expected 'secret123', got %q", result)
	}
}

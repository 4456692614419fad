package logger

import "testing"

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"empty", "", ""},
		{"short", "1234", "***"},
		{"seven chars", "abcdefg", "***"},
		{"eight char pin fully hidden", "12345678", "***"},
		{"nine chars", "123456789", "1234*6789"},
		{"long token", "sk-1234567890abcdef", "sk-1***********cdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskToken(tt.token); got != tt.want {
				t.Errorf("MaskToken(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestIsSensitiveKey(t *testing.T) {
	sensitive := []string{"token", "bot_token", "PASSWORD", "device_pin", "api_key", "Authorization"}
	for _, k := range sensitive {
		if !IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = false, want true", k)
		}
	}

	plain := []string{"device_id", "task_id", "progress", "status"}
	for _, k := range plain {
		if IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = true, want false", k)
		}
	}
}

func TestSanitizeValue(t *testing.T) {
	if got := SanitizeValue("pin", "123456"); got != "***" {
		t.Errorf("expected masked pin, got %v", got)
	}
	if got := SanitizeValue("pin", 123456); got != "***MASKED***" {
		t.Errorf("expected non-string mask, got %v", got)
	}
	if got := SanitizeValue("device_id", "emulator-5554"); got != "emulator-5554" {
		t.Errorf("non-sensitive value changed: %v", got)
	}
}

func TestSanitizeArgs(t *testing.T) {
	args := SanitizeArgs("device_id", "emulator-5554", "pin", "12345678")
	if args[1] != "emulator-5554" {
		t.Errorf("device_id should be untouched, got %v", args[1])
	}
	if args[3] == "12345678" {
		t.Errorf("pin should be masked, got %v", args[3])
	}

	// 奇数个参数不应panic
	odd := SanitizeArgs("only-key")
	if len(odd) != 1 || odd[0] != "only-key" {
		t.Errorf("odd args mishandled: %v", odd)
	}
}

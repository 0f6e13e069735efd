package voucher

import (
	"strings"
	"testing"
)

func TestGenerateCodeShape(t *testing.T) {
	code := GenerateCode(PrefixOnline)
	if !strings.HasPrefix(code, PrefixOnline) {
		t.Fatalf("expected prefix %s, got %q", PrefixOnline, code)
	}
	if code != strings.ToUpper(code) {
		t.Fatalf("expected uppercase code, got %q", code)
	}
	if len(code) < len(PrefixOnline)+10 {
		t.Fatalf("code too short: %q", code)
	}
}

func TestGenerateCodeDistinctWithinMillisecond(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		code := GenerateCode(PrefixCounter)
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code generated: %q", code)
		}
		seen[code] = struct{}{}
	}
}

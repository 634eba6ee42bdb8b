package phone

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"spaces and dashes", "+49 151 2345-6789", "+4915123456789", false},
		{"double-zero prefix", "004915123456789", "+4915123456789", false},
		{"parentheses", "+1 (415) 555-2671", "+14155552671", false},
		{"letters rejected", "+49 CALL ME", "", true},
		{"too short", "+49123", "", true},
		{"too long", "+1234567890123456", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Format(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatRoundTripsE164(t *testing.T) {
	for _, n := range []string{"+4915123456789", "+14155552671", "+8613912345678"} {
		got, err := Format(n)
		if err != nil {
			t.Fatalf("Format(%q) unexpected error: %v", n, err)
		}
		if got != n {
			t.Errorf("Format(%q) = %q, expected E.164 input to round-trip unchanged", n, got)
		}
	}
}

package version

import (
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		major uint16
		minor uint16
	}{
		{"1.0", 1, 0},
		{"1.1", 1, 1},
		{"2.0", 2, 0},
		{"10.23", 10, 23},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v.Major != tt.major || v.Minor != tt.minor {
				t.Errorf("Parse(%q) = %d.%d, want %d.%d", tt.input, v.Major, v.Minor, tt.major, tt.minor)
			}
			if v.String() != tt.input {
				t.Errorf("String() = %q, want %q", v.String(), tt.input)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"", "1", "abc", "1.0.0", "1.x", "-1.0", ".1", "1."} {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); err == nil {
				t.Errorf("Parse(%q) should return error", input)
			}
		})
	}
}

func TestCompatible(t *testing.T) {
	v10, _ := Parse("1.0")
	v13, _ := Parse("1.3")
	v20, _ := Parse("2.0")

	if !v10.Compatible(v13) {
		t.Error("1.0 should be compatible with 1.3")
	}
	if v10.Compatible(v20) {
		t.Error("1.0 should not be compatible with 2.0")
	}
}

func TestSubprotocolRoundTrip(t *testing.T) {
	name := Subprotocol(1)
	if name != "pushline.v1" {
		t.Fatalf("Subprotocol(1) = %q, want pushline.v1", name)
	}
	major, err := MajorFromSubprotocol(name)
	if err != nil || major != 1 {
		t.Errorf("MajorFromSubprotocol(%q) = %d, %v", name, major, err)
	}
}

func TestMajorFromSubprotocol_Invalid(t *testing.T) {
	for _, input := range []string{"", "chat.v1", "pushline.v", "pushline.vx", "pushline.v99999"} {
		t.Run(input, func(t *testing.T) {
			if _, err := MajorFromSubprotocol(input); err == nil {
				t.Errorf("MajorFromSubprotocol(%q) should return error", input)
			}
		})
	}
}

func TestSupportedSubprotocols(t *testing.T) {
	got := SupportedSubprotocols()
	if len(got) != 1 || got[0] != "pushline.v1" {
		t.Errorf("SupportedSubprotocols() = %v", got)
	}
}

func TestCheckSubprotocol(t *testing.T) {
	tests := []struct {
		selected string
		wantErr  bool
	}{
		{"", false},
		{"pushline.v1", false},
		{"pushline.v2", true},
		{"chat", true},
	}

	for _, tt := range tests {
		t.Run(tt.selected, func(t *testing.T) {
			err := CheckSubprotocol(tt.selected)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckSubprotocol(%q) error = %v, wantErr %v", tt.selected, err, tt.wantErr)
			}
		})
	}
}

package textutil

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rồng Hư Không", "rong hu khong"},
		{"Chó con (Cấp 1)", "cho con (cap 1)"},
		{"  Đêm   Ả Rập ", "dem a rap"},
		{"Pony Motor", "pony motor"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rồng Hư Không", "Rồng_Hư_Không"},
		{"Chó con (Cấp 1)", "Chó_con_Cấp_1"},
		{"Boro Đại Dương - Tiến Hóa", "Boro_Đại_Dương_-_Tiến_Hóa"},
		{"a/b\\c:d ", "abcd"},
	}
	for _, tt := range tests {
		if got := CleanFileName(tt.in); got != tt.want {
			t.Errorf("CleanFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package usecase

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"xcreator/internal/domain"
)

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Nike", "Nike", false},
		{"  @Nike ", "Nike", false},
		{"@red_bull", "red_bull", false},
		{"", "", true},
		{"@", "", true},
		{"has space", "", true},
		{"waytoolonghandle123", "", true},
		{"dash-handle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeHandle(tt.in)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidHandle) {
					t.Fatalf("NormalizeHandle(%q) error = %v, want ErrInvalidHandle", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeHandle(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeHandle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHandleVariants(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"NiKe", []string{"nike", "NiKe", "NIKE", "Nike"}},
		{"nike", []string{"nike", "NIKE", "Nike"}},
		{"NIKE", []string{"nike", "NIKE", "Nike"}},
		{"_x1", []string{"_x1", "_X1"}},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, HandleVariants(tt.in)); diff != "" {
			t.Errorf("HandleVariants(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestKeys(t *testing.T) {
	if got := ProfileKey(domain.CategoryOrganization, "NIKE"); got != "organization_nike" {
		t.Errorf("ProfileKey = %q", got)
	}
	if got := PostKey("Nike", "1789"); got != "nike_1789" {
		t.Errorf("PostKey = %q", got)
	}

	want := []string{"individual_mkbhd", "individual_MKBHD", "individual_Mkbhd"}
	if diff := cmp.Diff(want, VariantKeys(domain.CategoryIndividual, "MKBHD")); diff != "" {
		t.Errorf("VariantKeys mismatch (-want +got):\n%s", diff)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo world", 5); got != "héllo" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}

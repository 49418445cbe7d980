package fs

import "testing"

func TestMountPath(t *testing.T) {
	tests := []struct {
		input  string
		expect string
		root   bool
	}{
		{input: "", expect: "/", root: true},
		{input: "/", expect: "/", root: true},
		{input: "red", expect: "/red"},
		{input: "/red/square/", expect: "/red/square"},
		{input: "//red//square", expect: "/red/square"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mp := NewMountPath(tt.input)
			if mp.String() != tt.expect {
				t.Errorf("Expected %q, got %q", tt.expect, mp.String())
			}
			if mp.IsRoot() != tt.root {
				t.Errorf("Expected IsRoot() = %v for %q", tt.root, tt.input)
			}
		})
	}

	child := NewMountPath("/red").Join("photo.jpg")
	if child.String() != "/red/photo.jpg" {
		t.Errorf("Expected /red/photo.jpg, got %q", child.String())
	}
	if child.Base() != "photo.jpg" {
		t.Errorf("Expected base photo.jpg, got %q", child.Base())
	}
}

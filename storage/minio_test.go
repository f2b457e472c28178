package storage

import "testing"

func TestDetectImageType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39}, "image/gif"},
		{"bmp", []byte{0x42, 0x4D, 0x00, 0x00, 0x00}, "image/bmp"},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, "image/jpeg"},
		{"unknown defaults to jpeg", []byte{0x00, 0x01, 0x02, 0x03, 0x04}, "image/jpeg"},
		{"too short defaults to jpeg", []byte{0x89}, "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectImageType(tt.data); got != tt.want {
				t.Errorf("DetectImageType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", ".png"},
		{"image/gif", ".gif"},
		{"image/bmp", ".bmp"},
		{"image/jpeg", ".jpg"},
		{"application/octet-stream", ".jpg"},
	}

	for _, tt := range tests {
		if got := extensionFor(tt.contentType); got != tt.want {
			t.Errorf("extensionFor(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

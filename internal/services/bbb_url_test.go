package services

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"testing"
)

func TestURLBuilder_ActionURL(t *testing.T) {
	builder, err := NewURLBuilder("https://lb.example.com/bigbluebutton", "s3cret", "sha1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := builder.ActionURL("schedule", url.Values{"bodyhash": {"abc"}})

	sum := sha1.Sum([]byte("schedule" + "bodyhash=abc" + "s3cret"))
	want := "https://lb.example.com/bigbluebutton/api/schedule?bodyhash=abc&checksum=" + hex.EncodeToString(sum[:])
	if got != want {
		t.Fatalf("unexpected URL:\n got %s\nwant %s", got, want)
	}
}

func TestURLBuilder_TrailingSlashAndNoParams(t *testing.T) {
	builder, err := NewURLBuilder("https://lb.example.com/bigbluebutton/", "s3cret", "sha256")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := builder.ActionURL("getMeetings", nil)

	sum := sha256.Sum256([]byte("getMeetings" + "s3cret"))
	want := "https://lb.example.com/bigbluebutton/api/getMeetings?checksum=" + hex.EncodeToString(sum[:])
	if got != want {
		t.Fatalf("unexpected URL:\n got %s\nwant %s", got, want)
	}
}

func TestNewHash(t *testing.T) {
	tests := []struct {
		algorithm string
		hexLen    int
		wantErr   bool
	}{
		{"sha1", 40, false},
		{"", 40, false},
		{"SHA256", 64, false},
		{"sha384", 96, false},
		{"sha512", 128, false},
		{"md5", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.algorithm, func(t *testing.T) {
			newHash, err := NewHash(tc.algorithm)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.algorithm)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := len(Digest(newHash, []byte("payload"))); got != tc.hexLen {
				t.Errorf("expected %d hex chars, got %d", tc.hexLen, got)
			}
		})
	}
}

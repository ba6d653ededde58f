package main

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		confirm  string
		wantErr  error
	}{
		{"valid password", "validpass123", "validpass123", nil},
		{"minimum length password", "123456", "123456", nil},
		{"too short password", "12345", "12345", errTooShort},
		{"empty password", "", "", errTooShort},
		{"mismatched passwords", "password123", "password456", errMismatch},
		{"too long password", strings.Repeat("a", 73), strings.Repeat("a", 73), errTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hashPassword([]byte(tt.password), []byte(tt.confirm), bcrypt.MinCost)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := bcrypt.CompareHashAndPassword(hash, []byte(tt.password)); err != nil {
				t.Errorf("hash does not verify: %v", err)
			}
		})
	}
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"newline terminated", "secret\n", "secret", false},
		{"crlf terminated", "secret\r\n", "secret", false},
		{"no trailing newline", "secret", "secret", false},
		{"only first line", "first\nsecond\n", "first", false},
		{"empty input", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readLine(bufio.NewReader(strings.NewReader(tt.input)))
			if tt.wantErr {
				if !errors.Is(err, io.EOF) {
					t.Errorf("err = %v, want EOF", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hash", "hash"},
		{"verify", "verify"},
		{"with-dash_and_underscore", "with-dash_and_underscore"},
		{"bad;rm -rf", "bad_rm_-rf"},
		{"\x1b[31mred", "__31mred"},
	}

	for _, tt := range tests {
		if got := sanitizeCommand(tt.input); got != tt.want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

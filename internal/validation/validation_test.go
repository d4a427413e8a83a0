package validation

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  error
	}{
		{"jane_rome.xml", nil},
		{"matched_jane_rome.xml", nil},
		{"Ῥώμη.xml", nil},
		{"", ErrInvalidFilename},
		{".", ErrInvalidFilename},
		{"..", ErrInvalidFilename},
		{"a/b.xml", ErrInvalidFilename},
		{`a\b.xml`, ErrInvalidFilename},
		{"a\x00.xml", ErrInvalidFilename},
		{"a\n.xml", ErrInvalidFilename},
		{"-rf.xml", ErrInvalidFilename},
		{strings.Repeat("a", MaxFilenameLength+1), ErrFilenameTooLong},
	}

	for _, tt := range tests {
		err := ValidateFilename(tt.filename)
		if tt.wantErr == nil {
			if err != nil {
				t.Errorf("ValidateFilename(%q) unexpected error: %v", tt.filename, err)
			}
			continue
		}
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ValidateFilename(%q) = %v, want %v", tt.filename, err, tt.wantErr)
		}
	}
}

func TestValidateDocumentName(t *testing.T) {
	if err := ValidateDocumentName("smith_paris.xml"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateDocumentName("notes.txt"); !errors.Is(err, ErrNotDocument) {
		t.Errorf("expected ErrNotDocument, got %v", err)
	}
	if err := ValidateDocumentName("../x.xml"); !errors.Is(err, ErrInvalidFilename) {
		t.Errorf("expected ErrInvalidFilename, got %v", err)
	}
}

func TestValidatePrefix(t *testing.T) {
	for _, p := range []string{"", "matched_", "export-"} {
		if err := ValidatePrefix(p); err != nil {
			t.Errorf("ValidatePrefix(%q) unexpected error: %v", p, err)
		}
	}
	for _, p := range []string{"../", "a/b", "-x"} {
		if err := ValidatePrefix(p); err == nil {
			t.Errorf("ValidatePrefix(%q) should fail", p)
		}
	}
}

func TestValidateFileType(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		filename string
		want     FileType
		wantErr  bool
	}{
		{"tar.xz", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00}, "bundle.tar.xz", FileTypeTarXZ, false},
		{"tar.gz", []byte{0x1f, 0x8b, 0x08}, "bundle.tar.gz", FileTypeTarGZ, false},
		{"sqlite", []byte("SQLite format 3\x00rest"), "catalog.db", FileTypeSQLite, false},
		{"xml", []byte(`<?xml version="1.0"?><a/>`), "matched_a.xml", FileTypeXML, false},
		{"gzip named xz", []byte{0x1f, 0x8b, 0x08}, "bundle.tar.xz", "", true},
		{"text named sqlite", []byte("hello"), "catalog.db", "", true},
		{"empty bundle", nil, "bundle.tar.xz", "", true},
		{"unknown suffix", []byte("hello"), "notes.txt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFileType(bytes.NewReader(tt.content), tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateFileType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrFileType) {
				t.Errorf("error %v should wrap ErrFileType", err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ValidateFileType() = %v, want %v", got, tt.want)
			}
		})
	}
}

type errorReader struct{}

func (errorReader) Read(p []byte) (int, error) {
	return 0, errors.New("read failed")
}

func TestValidateFileType_ReadError(t *testing.T) {
	if _, err := ValidateFileType(errorReader{}, "bundle.tar.xz"); err == nil {
		t.Error("expected read error")
	}
}

func BenchmarkValidateFilename(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = ValidateFilename("matched_jane_rome.xml")
	}
}

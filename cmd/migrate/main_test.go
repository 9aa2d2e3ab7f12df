package main

import (
	"crypto/sha256"
	"regexp"
	"strconv"
	"testing"
)

func TestMigrationFilenamePattern(t *testing.T) {
	pattern := regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_create_behavior_models.sql", true, 1, "create_behavior_models"},
		{"0002_create_transactions.sql", true, 2, "create_transactions"},
		{"001_invalid.sql", false, 0, ""},       // wrong number format
		{"0001_test", false, 0, ""},             // missing .sql
		{"0001.sql", false, 0, ""},              // missing name
		{"invalid_0001_test.sql", false, 0, ""}, // wrong order
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := pattern.FindStringSubmatch(tt.filename)
			if (matches != nil) != tt.valid {
				t.Fatalf("match = %v, want valid = %v", matches != nil, tt.valid)
			}
			if !tt.valid {
				return
			}
			version, err := strconv.Atoi(matches[1])
			if err != nil {
				t.Fatalf("version parse: %v", err)
			}
			if version != tt.version {
				t.Errorf("version = %d, want %d", version, tt.version)
			}
			if matches[2] != tt.name {
				t.Errorf("name = %q, want %q", matches[2], tt.name)
			}
		})
	}
}

func TestMigrationChecksumConsistency(t *testing.T) {
	content := []byte("CREATE TABLE test (id INT64);")
	different := []byte("CREATE TABLE different (id INT64);")

	if sha256.Sum256(content) != sha256.Sum256(content) {
		t.Error("Same content should produce the same checksum")
	}
	if sha256.Sum256(content) == sha256.Sum256(different) {
		t.Error("Different content should produce different checksums")
	}
}

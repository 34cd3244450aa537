package license

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Separator is placed between the contents of two license files.
const Separator = "\n\n"

var filePattern = regexp.MustCompile(`(?i)(license|copying|authors|notice|eula)`)

// IsLicenseFile reports whether a file name looks like license material.
// The match is a case-insensitive substring match, so LICENSE-APACHE,
// UNLICENSE and third_party_notices.md all qualify.
func IsLicenseFile(name string) bool {
	return filePattern.MatchString(name)
}

// FromDir concatenates every license file directly inside dir, in file name
// order, separated by a blank line. Subdirectories, symlinks, unreadable
// files and files that are not valid UTF-8 are skipped. It returns false
// when nothing usable was found or dir cannot be listed.
func FromDir(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	var parts []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsLicenseFile(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil || !utf8.Valid(data) {
			continue
		}
		parts = append(parts, string(data))
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, Separator), true
}

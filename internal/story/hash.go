package story

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainStory is the domain prefix of story fingerprints.
const DomainStory = "osiris/story/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a content hash of the story's Dump output. Two
// emissions of the same input have the same fingerprint.
func Fingerprint(s *Story) (string, error) {
	var buf bytes.Buffer
	if err := Dump(&buf, s); err != nil {
		return "", fmt.Errorf("Fingerprint: failed to dump: %w", err)
	}
	return hashWithDomain(DomainStory, buf.Bytes()), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests.
func MustFingerprint(s *Story) string {
	fp, err := Fingerprint(s)
	if err != nil {
		panic(err)
	}
	return fp
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SourceHashPolicy computes a stable content hash for a document source so
// ingestion can skip documents whose content has not changed.
type SourceHashPolicy interface {
	Compute(title, body string) string
}

type sourceHashPolicy struct{}

// NewSourceHashPolicy returns the default SourceHashPolicy.
func NewSourceHashPolicy() SourceHashPolicy {
	return &sourceHashPolicy{}
}

// Compute returns the SHA-256 hash of the trimmed title and body. A null byte
// separates the two so "ab"+"c" and "a"+"bc" hash differently.
func (p *sourceHashPolicy) Compute(title, body string) string {
	content := strings.TrimSpace(title) + "\x00" + strings.TrimSpace(body)
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

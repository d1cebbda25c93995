package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSignal  = "nysig/signal/v1"
	DomainRuleSet = "nysig/ruleset/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint identifies a signal by content, ignoring its timestamp.
// Two evaluations of the same snapshot against the same rules produce
// signals with equal fingerprints.
func Fingerprint(s Signal) (string, error) {
	s.Timestamp = Timestamp{}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSignal, norm.NFC.Bytes(data)), nil
}

// RuleSetHash identifies an ordered rule set by content.
func RuleSetHash(rules []Rule) (string, error) {
	if rules == nil {
		rules = []Rule{}
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return "", fmt.Errorf("RuleSetHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRuleSet, norm.NFC.Bytes(data)), nil
}

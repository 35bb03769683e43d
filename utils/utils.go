// Package utils provides utility functions for the application.
package utils

import "strings"

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// NormalizePhone strips whitespace and a leading "00" international prefix,
// keeping the leading "+" if present. Upstream callers are not strict about
// E.164, so the gatekeeper normalizes before handing numbers to transport.
func NormalizePhone(phone string) string {
	p := strings.TrimSpace(phone)
	p = strings.ReplaceAll(p, " ", "")
	p = strings.ReplaceAll(p, "-", "")
	if strings.HasPrefix(p, "00") {
		p = "+" + p[2:]
	}
	return p
}

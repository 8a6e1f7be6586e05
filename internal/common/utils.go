package common

import "strings"

// Redact masks a secret for diagnostics. Short values are fully masked; longer
// ones keep the last four characters so operators can tell tokens apart.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return "****" + secret[len(secret)-4:]
}

// TruncateBody shortens an upstream response body for log lines and error messages.
func TruncateBody(body string, max int) string {
	body = strings.TrimSpace(body)
	if max <= 0 || len(body) <= max {
		return body
	}
	return body[:max] + "...(truncated)"
}

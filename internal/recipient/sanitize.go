package recipient

import (
	"net/mail"
	"strings"
)

// Sanitize returns the trimmed address when it is a bare local@domain
// address, or the empty string otherwise. Display names, quoted local
// parts and control characters are rejected.
func Sanitize(address string) string {
	address = strings.TrimSpace(address)
	if address == "" || strings.ContainsAny(address, "'\"\\<>;\r\n\t ") {
		return ""
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address {
		return ""
	}
	at := strings.LastIndex(address, "@")
	if at <= 0 || !strings.Contains(address[at+1:], ".") {
		return ""
	}
	return address
}

// Valid reports whether address survives Sanitize unchanged.
func Valid(address string) bool {
	return address != "" && Sanitize(address) == address
}

package main

import "github.com/Klingon-tech/splwallet/internal/session"

// wipe zeroes secret bytes.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// shortAddress abbreviates a base58 address for notifications.
func shortAddress(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:4] + "…" + s[len(s)-4:]
}

// notificationText builds the OS notification for an acknowledgement.
func notificationText(ack *session.Acknowledgement) (title, body string) {
	switch ack.Operation {
	case "mint":
		title = "Tokens minted"
	case "transfer":
		title = "Tokens sent"
	default:
		title = "SPL Wallet"
	}
	body = ack.Message
	if ack.Signature != "" {
		body += " (" + shortAddress(ack.Signature) + ")"
	}
	return title, body
}

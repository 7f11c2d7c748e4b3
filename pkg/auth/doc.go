// Package auth stores Telegram API credentials with layered backends:
// the system keychain when available, an AES-GCM encrypted file
// otherwise, and environment variables as a read-only fallback.
package auth

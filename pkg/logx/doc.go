// Package logx wraps zerolog behind a small Logger/Field API with
// hot-swappable sinks: console, append-only file, and a rate-limited
// Telegram chat sink for operator-facing warnings.
package logx

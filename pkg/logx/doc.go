// Package logx configures notifyrelay's structured logging.
//
// A small wrapper (logx.Logger) on top of zerolog keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - An optional Telegram sink for warnings and errors (min-level + rate limiting)
package logx

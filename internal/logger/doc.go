// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a sane console encoder,
//   - context helpers (ToContext/FromContext/WithName),
//   - level configuration and parsing utilities,
//   - leveled convenience functions (Info, Warnf, etc.).
//
// All services accept a context and extract the logger from it, enabling
// scoped, structured logging throughout the codebase. There are deliberately
// no Fatal helpers: failures propagate as errors to a single top-level
// handler that decides the exit code.
package logger

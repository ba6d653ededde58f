// Package logging is the process-wide logger for tubegate.
//
// Package-level printf helpers (Debug, Info, Warn, Error, Fatal) write
// through a zerolog logger whose threshold comes from LOG_LEVEL, or debug when
// DEBUG=true. Output is JSON lines unless LOG_FORMAT=console.
//
// Handlers use the Context variants (DebugContext, InfoContext, WarnContext,
// ErrorContext), which tag the line with the request id placed on the context
// by the request id middleware. FromContext exposes that logger directly.
package logging

// Package logger wraps zap with a process-wide sugared logger, level
// parsing, and context helpers so request-scoped fields (request id,
// notification id) follow a call through the service.
package logger

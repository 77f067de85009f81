// Package tracing wraps OpenTelemetry so that kernel lifecycle and
// administrative calls can be traced without importing the SDK directly.
package tracing

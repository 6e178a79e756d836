// Package logger builds configured *slog.Logger instances and provides
// attribute constructors shared across the codebase so log keys stay
// consistent between packages.
package logger

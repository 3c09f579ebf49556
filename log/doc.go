// Package log provides structured logging handler construction for use with
// [log/slog].
//
// It supports multiple output formats ([FormatJSON], [FormatLogfmt], and
// [FormatText]) and severity levels ([LevelError], [LevelWarn], [LevelInfo],
// and [LevelDebug]). Use [NewHandler] to create a handler directly, or use
// [Config] with CLI flag integration via [github.com/spf13/pflag] and shell
// completion support via [github.com/spf13/cobra].
//
// Typical usage creates a [Config], registers flags, then builds a handler
// at startup:
//
//	cfg := log.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//	cfg.RegisterCompletions(rootCmd)
//
//	handler, err := cfg.NewHandler(os.Stderr)
//	slog.SetDefault(slog.New(handler))
//
// A [Ring] retains the most recent log lines, which is useful for showing a
// log tail inside a Bubble Tea TUI:
//
//	ring := log.NewRing(64)
//	handler := log.NewHandler(ring, log.LevelInfo, log.FormatText)
//	logger := slog.New(handler)
//
//	// Later, from the TUI's View:
//	for _, line := range ring.Lines() {
//	    // Render line.
//	}
//
// Combine it with [io.MultiWriter] to write to multiple locations:
//
//	ring := log.NewRing(64)
//	w := io.MultiWriter(os.Stderr, ring)
//	handler := log.NewHandler(w, log.LevelInfo, log.FormatText)
//	logger := slog.New(handler)
package log

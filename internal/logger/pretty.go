// internal/logger/pretty.go
package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// PrettyEncoder creates a user-friendly console encoder
func PrettyEncoder() zapcore.Encoder {
	config := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	return zapcore.NewConsoleEncoder(config)
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(fmt.Sprintf("%s[DEBUG]%s", ColorCyan, ColorReset))
	case zapcore.InfoLevel:
		enc.AppendString(fmt.Sprintf("%s[INFO]%s", ColorGreen, ColorReset))
	case zapcore.WarnLevel:
		enc.AppendString(fmt.Sprintf("%s[WARN]%s", ColorYellow, ColorReset))
	case zapcore.ErrorLevel:
		enc.AppendString(fmt.Sprintf("%s[ERROR]%s", ColorRed, ColorReset))
	case zapcore.FatalLevel:
		enc.AppendString(fmt.Sprintf("%s[FATAL]%s", ColorRed+ColorBold, ColorReset))
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

// customTimeEncoder formats time in a readable way
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// FormatMessage turns well-known curve log entries into one-line summaries.
// Unknown messages are returned unchanged.
func FormatMessage(msg string, fields []zapcore.Field) string {
	switch msg {
	case "Curve created":
		token := extractField(fields, "token_id")
		return fmt.Sprintf("%s🚀 Curve created for %s%s", ColorGreen, shortenAddress(token), ColorReset)

	case "Trade applied":
		dir := extractField(fields, "direction")
		token := extractField(fields, "token_id")
		progress := extractField(fields, "progress")
		return fmt.Sprintf("%s⚡ %s on %s, progress %s%%%s", ColorCyan, strings.ToUpper(dir), shortenAddress(token), progress, ColorReset)

	case "Curve completed":
		token := extractField(fields, "token_id")
		return fmt.Sprintf("%s🎉 Bonding curve complete: %s%s", ColorGreen+ColorBold, shortenAddress(token), ColorReset)

	case "Transaction sent":
		sig := extractField(fields, "signature")
		return fmt.Sprintf("%s📤 Transaction sent: %s%s", ColorYellow, shortenSignature(sig), ColorReset)

	case "Transaction confirmed":
		sig := extractField(fields, "signature")
		return fmt.Sprintf("%s✅ Transaction confirmed: %s%s", ColorGreen, shortenSignature(sig), ColorReset)

	case "Discarding corrupted curve entry", "Removed corrupted curve entry":
		token := extractField(fields, "token_id")
		return fmt.Sprintf("%s🗑  Corrupted curve entry removed: %s%s", ColorPurple, shortenAddress(token), ColorReset)

	default:
		return msg
	}
}

// Helper functions
func extractField(fields []zapcore.Field, key string) string {
	for _, field := range fields {
		if field.Key != key {
			continue
		}
		if field.Type == zapcore.StringType {
			return field.String
		}
		return fmt.Sprintf("%v", field.Interface)
	}
	return ""
}

func shortenAddress(addr string) string {
	if len(addr) > 8 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}

func shortenSignature(sig string) string {
	if len(sig) > 16 {
		return sig[:8] + "..." + sig[len(sig)-8:]
	}
	return sig
}

// prettyCore rewrites known messages with FormatMessage. Fields are kept only
// for messages it does not recognise.
type prettyCore struct {
	core   zapcore.Core
	fields []zapcore.Field
}

func (c *prettyCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *prettyCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &prettyCore{core: c.core, fields: merged}
}

func (c *prettyCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *prettyCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := append(append([]zapcore.Field{}, c.fields...), fields...)

	pretty := FormatMessage(entry.Message, all)
	if pretty == entry.Message {
		return c.core.Write(entry, all)
	}
	entry.Message = pretty
	return c.core.Write(entry, nil)
}

func (c *prettyCore) Sync() error {
	return c.core.Sync()
}

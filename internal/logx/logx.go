package logx

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const appName = "link-checker"

// New はプロセス起動時に一度だけ生成するロガーを返します。
// format が "json" の場合はJSON、それ以外はコンソール向けの整形出力です。
// JSONのタイムスタンプは zerolog の既定 (RFC3339) のままで、パッケージ変数は変更しません。
func New(w io.Writer, level, format string) zerolog.Logger {
	out := w
	if !strings.EqualFold(format, "json") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("app", appName).
		Logger()
}

// ParseLevel は debug|info|warn|error を zerolog.Level に変換します。不明な値は info です。
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// With は、属性を追加したロガーを持つ新しいコンテキストを返します。
func With(ctx context.Context, fields map[string]any) context.Context {
	l := FromContext(ctx).With().Fields(fields).Logger()
	return l.WithContext(ctx)
}

// FromContext はリクエストスコープのロガーを返します。未設定の場合は何も出力しないロガーです。
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

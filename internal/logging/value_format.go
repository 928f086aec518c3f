package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// renderValue formats v for console output. Quoted strings are escaped when
// they would break key=value parsing.
func renderValue(v slog.Value, quoted bool) string {
	v = v.Resolve()
	var s string
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindString:
		s = v.String()
	default:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	}
	if quoted && (s == "" || strings.ContainsFunc(s, breaksPair)) {
		return strconv.Quote(s)
	}
	return s
}

func breaksPair(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

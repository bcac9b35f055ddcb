package diag

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

var levelColors = map[Level]*color.Color{
	LevelDebug:   color.New(color.Faint),
	LevelInfo:    color.New(color.FgCyan),
	LevelWarning: color.New(color.FgYellow),
	LevelError:   color.New(color.FgRed, color.Bold),
}

// ConsoleAction writes one line per event to w, colouring the level
func ConsoleAction(w io.Writer) Action {
	return func(level Level, message string, loc Location) {
		tag := level.String()
		if c, ok := levelColors[level]; ok {
			tag = c.Sprint(tag)
		}
		if loc.File == "" {
			fmt.Fprintf(w, "%s %s: %s\n", tag, loc.Module, message)
			return
		}
		fmt.Fprintf(w, "%s %s %s:%d: %s\n", tag, loc.Module, filepath.Base(loc.File), loc.Line, message)
	}
}

// ZapAction forwards events to a zap logger
func ZapAction(logger *zap.Logger) Action {
	return func(level Level, message string, loc Location) {
		fields := []zap.Field{
			zap.String("module", loc.Module),
			zap.String("file", loc.File),
			zap.String("func", loc.Function),
			zap.Int("line", loc.Line),
		}
		switch level {
		case LevelDebug:
			logger.Debug(message, fields...)
		case LevelInfo:
			logger.Info(message, fields...)
		case LevelWarning:
			logger.Warn(message, fields...)
		default:
			logger.Error(message, fields...)
		}
	}
}

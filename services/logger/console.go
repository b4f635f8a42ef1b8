package logsvc

import (
	"strings"

	"go.uber.org/zap"

	"github.com/trezcool/plagcheck/core"
)

// NewZap builds a development (human readable) or production (JSON) zap logger.
func NewZap(debug bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

type ConsoleLogger struct {
	sugar *zap.SugaredLogger
}

var _ core.Logger = (*ConsoleLogger)(nil)

func NewConsoleLogger(sugar *zap.SugaredLogger) *ConsoleLogger {
	return &ConsoleLogger{sugar: sugar}
}

func (l *ConsoleLogger) Debug(msg string, kv ...interface{}) { l.sugar.Debugw(msg, sanitizeKVs(kv)...) }
func (l *ConsoleLogger) Info(msg string, kv ...interface{})  { l.sugar.Infow(msg, sanitizeKVs(kv)...) }
func (l *ConsoleLogger) Warn(msg string, kv ...interface{})  { l.sugar.Warnw(msg, sanitizeKVs(kv)...) }
func (l *ConsoleLogger) Error(msg string, kv ...interface{}) { l.sugar.Errorw(msg, sanitizeKVs(kv)...) }
func (l *ConsoleLogger) Fatal(msg string, kv ...interface{}) { l.sugar.Fatalw(msg, sanitizeKVs(kv)...) }

func (l *ConsoleLogger) With(kv ...interface{}) core.Logger {
	return &ConsoleLogger{sugar: l.sugar.With(sanitizeKVs(kv)...)}
}

func (l *ConsoleLogger) Sync() {
	_ = l.sugar.Sync()
}

var redactedKeys = []string{"password", "token", "apikey", "api_key", "secret", "authorization"}

func sanitizeKVs(kv []interface{}) []interface{} {
	if len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key, _ := kv[i].(string)
		if isRedacted(key) {
			out = append(out, kv[i], "[REDACTED]")
			continue
		}
		out = append(out, kv[i], kv[i+1])
	}
	return out
}

func isRedacted(key string) bool {
	key = strings.ToLower(key)
	for _, k := range redactedKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}

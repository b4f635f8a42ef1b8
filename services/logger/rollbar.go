package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/plagcheck/core"
)

// RollbarLogger logs to the console and reports to Rollbar (when enabled).
type RollbarLogger struct {
	console *ConsoleLogger
	fields  []interface{}
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(sugar *zap.SugaredLogger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{console: NewConsoleLogger(sugar)}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare turns kv into rollbar's expected fmt: msg, error, map[string]interface{}
func (l *RollbarLogger) prepare(msg string, kv []interface{}) []interface{} {
	all := sanitizeKVs(append(append([]interface{}{}, l.fields...), kv...))
	args := []interface{}{msg}
	extras := make(map[string]interface{})
	for i := 0; i < len(all); i += 2 {
		if i == len(all)-1 {
			extras["_"] = all[i]
			break
		}
		if err, ok := all[i+1].(error); ok {
			args = append(args, err)
		}
		extras[fmt.Sprint(all[i])] = all[i+1]
	}
	if len(extras) > 0 {
		args = append(args, extras)
	}
	return args
}

func (l *RollbarLogger) Debug(msg string, kv ...interface{}) {
	rollbar.Debug(l.prepare(msg, kv)...)
	l.console.Debug(msg, kv...)
}

func (l *RollbarLogger) Info(msg string, kv ...interface{}) {
	rollbar.Info(l.prepare(msg, kv)...)
	l.console.Info(msg, kv...)
}

func (l *RollbarLogger) Warn(msg string, kv ...interface{}) {
	rollbar.Warning(l.prepare(msg, kv)...)
	l.console.Warn(msg, kv...)
}

func (l *RollbarLogger) Error(msg string, kv ...interface{}) {
	rollbar.Error(l.prepare(msg, kv)...)
	l.console.Error(msg, kv...)
}

func (l *RollbarLogger) Fatal(msg string, kv ...interface{}) {
	rollbar.Critical(l.prepare(msg, kv)...)
	rollbar.Wait()
	l.console.Fatal(msg, kv...)
}

func (l *RollbarLogger) With(kv ...interface{}) core.Logger {
	fields := append(append([]interface{}{}, l.fields...), kv...)
	return &RollbarLogger{console: &ConsoleLogger{sugar: l.console.sugar.With(sanitizeKVs(kv)...)}, fields: fields}
}

func (l *RollbarLogger) Sync() {
	rollbar.Wait()
	l.console.Sync()
}

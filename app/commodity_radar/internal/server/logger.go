package server

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/logger"
)

// logrusLogger 把 kratos 日志转发到全局 logrus 实例
type logrusLogger struct{}

// NewLogger 返回写入 logger.Log 的 kratos 日志器
func NewLogger() log.Logger { return logrusLogger{} }

func (logrusLogger) Log(level log.Level, keyvals ...any) error {
	fields := logrus.Fields{}
	msg := ""
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		var val any = "(MISSING)"
		if i+1 < len(keyvals) {
			val = keyvals[i+1]
		}
		if key == log.DefaultMessageKey {
			msg = fmt.Sprint(val)
			continue
		}
		fields[key] = val
	}

	entry := logger.Log.WithFields(fields)
	switch level {
	case log.LevelDebug:
		entry.Debug(msg)
	case log.LevelWarn:
		entry.Warn(msg)
	case log.LevelError, log.LevelFatal:
		entry.Error(msg)
	default:
		entry.Info(msg)
	}
	return nil
}

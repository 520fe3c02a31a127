package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 大写的日志级别、ISO8601时间，其余沿用生产环境配置
func DefaultEncoderConfig() zapcore.EncoderConfig {
	var encoderConfig = zap.NewProductionEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return encoderConfig
}

func DefaultEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(DefaultEncoderConfig())
}

/*
无输入，输出一个Zap日志库的选项列表

记录调用者信息，只有DPanic及以上级别才记录堆栈
*/
func DefaultOption() []zap.Option {
	var stackTraceLevel zap.LevelEnablerFunc = func(level zapcore.Level) bool {
		return level >= zapcore.DPanicLevel
	}
	return []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(stackTraceLevel),
	}
}

/*
输入单个文件的大小上限（MB）和保留的旧文件数，输出一个日志轮转器

一次爬取的日志量不大，小于等于0的参数使用默认值：单个文件100MB、保留5个旧文件，旧文件压缩保存
*/
func DefaultLumberjackLogger(maxSize, maxBackups int) *lumberjack.Logger {
	if maxSize <= 0 {
		maxSize = 100
	}
	if maxBackups <= 0 {
		maxBackups = 5
	}
	return &lumberjack.Logger{
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		LocalTime:  true,
		Compress:   true,
	}
}

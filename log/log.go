package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Plugin = zapcore.Core

// 日志配置，File为空时只输出到标准输出
type Config struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"maxSize"`    // 单个日志文件的大小上限，MB
	MaxBackups int    `yaml:"maxBackups"` // 保留的旧日志文件数
}

func NewLogger(plugin zapcore.Core, options ...zap.Option) *zap.Logger {
	return zap.New(plugin, append(DefaultOption(), options...)...)
}

func NewPlugin(writer zapcore.WriteSyncer, enabler zapcore.LevelEnabler) Plugin {
	return zapcore.NewCore(DefaultEncoder(), writer, enabler)
}

func NewStdoutPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stdout)), enabler)
}

func NewStderrPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stderr)), enabler)
}

// lumberjack没有暴露sync方法，额外返回closer，进程退出前必须close才能保证日志全部落盘
func NewFilePlugin(filePath string, maxSize, maxBackups int, enabler zapcore.LevelEnabler) (Plugin, io.Closer) {
	var writer = DefaultLumberjackLogger(maxSize, maxBackups)
	writer.Filename = filePath
	return NewPlugin(zapcore.AddSync(writer), enabler), writer
}

// 解析日志级别，为空时为info
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

/*
输入日志配置，输出日志实例、关闭日志文件的closer和一个错误

该方法用于按配置创建爬虫使用的日志实例：始终输出到标准输出，配置了日志文件时同时写入轮转文件
*/
func New(cfg Config) (*zap.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	plugin := NewStdoutPlugin(level)
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		var filePlugin Plugin
		filePlugin, closer = NewFilePlugin(cfg.File, cfg.MaxSize, cfg.MaxBackups, level)
		plugin = zapcore.NewTee(plugin, filePlugin)
	}

	return NewLogger(plugin), closer, nil
}

package mongostorage

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	logger   *zap.Logger
	uri      string
	database string
	timeout  time.Duration // 单次写入的超时时间
}

var defaultOptions = options{
	logger:   zap.NewNop(),
	uri:      "mongodb://127.0.0.1:27017",
	database: "planning",
	timeout:  10 * time.Second,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func WithURI(uri string) Option {
	return func(opts *options) {
		opts.uri = uri
	}
}

func WithDatabase(name string) Option {
	return func(opts *options) {
		opts.database = name
	}
}

func WithTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.timeout = d
	}
}

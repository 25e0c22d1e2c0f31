package rowan

import "go.uber.org/zap"

// Option configures an [Engine] during construction.
type Option func(*Engine)

// WithCache shares an explicitly constructed metadata cache. Use this to
// reuse metadata across engines or to control the cache's lifecycle
// (Clear at teardown).
func WithCache(c *Cache) Option {
	return func(e *Engine) {
		if c != nil {
			e.cache = c
		}
	}
}

// WithPool shares an argument-buffer pool across engines.
func WithPool(p *BufferPool) Option {
	return func(e *Engine) {
		if p != nil {
			e.pool = p
		}
	}
}

// WithLogger enables debug logging of engine events. The default is a nop
// logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

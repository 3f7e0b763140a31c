package service

import (
	"time"

	"todoReminder/internal/cache"
)

type options struct {
	now   func() time.Time
	cache NotificationCache
}

type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithNotificationCache(c NotificationCache) Option {
	return func(o *options) {
		if c != nil {
			o.cache = c
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:   time.Now,
		cache: cache.Noop{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

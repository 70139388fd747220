package cache

import "errors"

var errRedisRequired = errors.New("redis is required for sync locks in production")

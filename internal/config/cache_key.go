package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionKey returns the cache key for one login session of a user.
func (r *CacheKeyStruct) SessionKey(userID, jti string) string {
	return fmt.Sprintf("session:%s:%s", userID, jti)
}

// SessionPattern matches every session key of a user.
func (r *CacheKeyStruct) SessionPattern(userID string) string {
	return fmt.Sprintf("session:%s:*", userID)
}

// ExamEventsChannel returns the Redis PubSub channel carrying exam updates to realtime rooms.
func (r *CacheKeyStruct) ExamEventsChannel(examID string) string {
	return fmt.Sprintf("exam:%s:events", examID)
}

// ExamEventsPattern matches every exam events channel.
func (r *CacheKeyStruct) ExamEventsPattern() string {
	return "exam:*:events"
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam monitor
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()

package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamPayloadKey returns the cache key for a published exam's student payload.
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// UserProgressKey returns the cache key for a user's autosaved progress
// snapshot on an exam.
func (r *CacheKeyStruct) UserProgressKey(examID, userID string) string {
	return fmt.Sprintf("user:%s:exam:%s:progress", userID, examID)
}

var CacheKey = NewCacheKeyStruct()

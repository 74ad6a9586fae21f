package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session.
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// SectionPayloadKey returns the cache key for a section's question payload
// (questions without correct answers).
func (r *CacheKeyStruct) SectionPayloadKey(sectionID string) string {
	return fmt.Sprintf("section:%s:payload", sectionID)
}

var CacheKey = NewCacheKeyStruct()

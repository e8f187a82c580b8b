package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AuditResultKey returns the cache key for an audit of a document under a
// degree selection and requirement table version. An empty degreeKey means
// auto-detected.
func (r *CacheKeyStruct) AuditResultKey(docHash, degreeKey, tableVersion string) string {
	if degreeKey == "" {
		degreeKey = "auto"
	}
	return fmt.Sprintf("audit:%s:degree:%s:v:%s", docHash, degreeKey, tableVersion)
}

// AuditRecordKey returns the cache key for an audit record that the persist
// worker may not have written yet.
func (r *CacheKeyStruct) AuditRecordKey(auditID string) string {
	return fmt.Sprintf("audit:record:%s", auditID)
}

var CacheKey = NewCacheKeyStruct()

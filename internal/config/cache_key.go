package config

import "fmt"

type CacheKeyStruct struct{}

// SubmissionKey returns the Redis key guarding one idempotent exam submission.
func (r *CacheKeyStruct) SubmissionKey(idempotencyKey string) string {
	return fmt.Sprintf("submit:%s", idempotencyKey)
}

var CacheKey = &CacheKeyStruct{}

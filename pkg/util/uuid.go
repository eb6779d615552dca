package util

import (
	"crypto/md5"

	"github.com/google/uuid"
)

// HashUUID derives a stable UUID from arbitrary content. The same input
// always yields the same UUID, which makes it usable as a re-runnable
// identifier for discovered series.
func HashUUID(value string) string {
	hash := md5.Sum([]byte(value))
	id, err := uuid.FromBytes(hash[:])
	if err != nil {
		return ""
	}
	return id.String()
}

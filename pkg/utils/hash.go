package utils

import (
	"crypto/md5"
	"fmt"
)

// HashString returns a stable hex digest used for chunk IDs and cache keys.
func HashString(input string) string {
	sum := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", sum)
}

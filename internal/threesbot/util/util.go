package util

import (
	"fmt"
	"hash/fnv"
	"time"
)

// GenerateCodeHash mints a short numeric table code from the current time.
func GenerateCodeHash() (int64, error) {
	h := fnv.New32a()
	bytes, err := time.Now().MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("hash binary encode error: %v", err)
	}

	_, err = h.Write(bytes)
	if err != nil {
		return 0, fmt.Errorf("hash write error: %w", err)
	}

	return int64(h.Sum32() >> 20), nil
}

package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New builds record ids like COMP1696156800000-a1b2c3. The millisecond
// stamp keeps ids roughly sortable; the random suffix guards against two
// saves landing in the same millisecond.
func New(prefix string) string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s%d", prefix, time.Now().UnixMilli())
	}
	return fmt.Sprintf("%s%d-%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(buf))
}

package util

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// NewToken returns a URL-safe hex string suitable for opaque session tokens.
func NewToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

var (
	idMu   sync.Mutex
	lastID int64
)

// NewRecordID returns a millisecond-timestamp id, bumped when two calls
// land in the same millisecond so ids stay strictly increasing within the
// process. Visitor and chat records rely on this order.
func NewRecordID() int64 {
	idMu.Lock()
	defer idMu.Unlock()
	id := time.Now().UnixMilli()
	if id <= lastID {
		id = lastID + 1
	}
	lastID = id
	return id
}

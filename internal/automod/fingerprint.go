package automod

import (
	"crypto/sha256"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type fingerprint struct {
	contentHash [sha256.Size]byte
	seenAt      time.Time
}

// Fingerprints remembers the last message per (guild, author) for duplicate
// suppression. It is bounded and TTL'd, so losing entries only degrades to
// "no suppression". Not persisted across restarts.
type Fingerprints struct {
	mu     sync.Mutex
	window time.Duration
	cache  *expirable.LRU[string, fingerprint]
}

func NewFingerprints(size int, window time.Duration) *Fingerprints {
	return &Fingerprints{
		window: window,
		cache:  expirable.NewLRU[string, fingerprint](size, nil, window),
	}
}

// Observe reports whether content repeats the author's previous message
// within the window, and records content as the new last message. The record
// happens on every call, so back-to-back duplicates keep matching against
// the immediately preceding message.
func (f *Fingerprints) Observe(guildID, authorID, content string, now time.Time) bool {
	key := guildID + ":" + authorID
	hash := sha256.Sum256([]byte(content))

	f.mu.Lock()
	defer f.mu.Unlock()

	previous, ok := f.cache.Get(key)
	duplicate := ok &&
		previous.contentHash == hash &&
		now.Sub(previous.seenAt) < f.window
	f.cache.Add(key, fingerprint{contentHash: hash, seenAt: now})
	return duplicate
}

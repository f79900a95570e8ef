package query

import "strings"

// Key identifies a cached query, e.g. ["userPosts", "alice"]
type Key []string

// String joins the segments with "/"
func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether prefix matches the leading segments of k
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// MatchesPrefix is HasPrefix on the joined string form used by persisters
func MatchesPrefix(key, prefix string) bool {
	return key == prefix || strings.HasPrefix(key, prefix+"/")
}


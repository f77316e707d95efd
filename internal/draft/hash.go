package draft

import (
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"
)

// NormalizeContent trims surrounding whitespace and case-folds, so that
// logically identical posts fingerprint identically.
func NormalizeContent(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// hashPayload is the canonical serialization fed to the digest. Field order is
// fixed by the struct, media references are sorted and comma-joined, so the
// bytes are independent of input ordering.
type hashPayload struct {
	Content  string `json:"content"`
	MediaIDs string `json:"mediaIds"`
}

// HashPost fingerprints a single post. A post with empty content still hashes
// (over the empty normalized string); only the absence of a post yields "".
func HashPost(p Post) string {
	ids := append([]string(nil), p.MediaIDs...)
	sort.Strings(ids)
	b, _ := json.Marshal(hashPayload{
		Content:  NormalizeContent(p.Content),
		MediaIDs: strings.Join(ids, ","),
	})
	sum := sha3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashThread fingerprints an ordered thread: member hashes paired with their
// position, sorted ascending, concatenated and digested again. The sort is
// stable, so posts without explicit positions keep their input order. An
// empty thread has no fingerprint and never matches another draft.
func HashThread(posts []Post) string {
	if len(posts) == 0 {
		return ""
	}
	ordered := append([]Post(nil), posts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})
	var combined strings.Builder
	for _, p := range ordered {
		combined.WriteString(HashPost(p))
	}
	sum := sha3.Sum256([]byte(combined.String()))
	return hex.EncodeToString(sum[:])
}

// HashDraft computes the draft-level fingerprint and refreshes the per-post
// hashes in place.
func HashDraft(d *Draft) string {
	for i := range d.Posts {
		d.Posts[i].ContentHash = HashPost(d.Posts[i])
	}
	if d.Kind == KindTweet && len(d.Posts) == 1 {
		return d.Posts[0].ContentHash
	}
	return HashThread(d.Posts)
}

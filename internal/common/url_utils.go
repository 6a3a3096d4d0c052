package common

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// NormalizeURL strips query parameters and fragments so the same article
// reached through tracking parameters (?ntype=RANKING etc.) hashes identically.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// HashURL returns the hex-encoded SHA-256 of a normalized URL.
// This is the Source uniqueness key.
func HashURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// ResolveURL resolves href against base, returning href unchanged on parse failure
func ResolveURL(href, base string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// CanonicalizeForMatch reduces a posting URL to a stable identity string so
// rank-search results can be compared against the tracked URL. Naver serves
// the same post under mobile/desktop hosts and under query-encoded and
// path-encoded forms:
//
//	m.blog.naver.com/alice/223001 == blog.naver.com/alice/223001
//	blog.naver.com/PostView.naver?blogId=alice&logNo=223001 == blog.naver.com/alice/223001
//	cafe.naver.com/ArticleRead.nhn?clubid=10&articleid=99 == cafe.naver.com/10/99
func CanonicalizeForMatch(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(rawURL)), "/")
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if strings.HasSuffix(host, ".naver.com") {
		host = strings.TrimPrefix(host, "m.")
	}

	path := strings.TrimSuffix(u.EscapedPath(), "/")
	query := u.Query()

	switch {
	case strings.HasPrefix(path, "/PostView"):
		// blog.naver.com/PostView.naver?blogId=X&logNo=Y -> /X/Y
		blogID := query.Get("blogId")
		logNo := query.Get("logNo")
		if blogID != "" && logNo != "" {
			path = "/" + blogID + "/" + logNo
		}
	case strings.HasPrefix(path, "/ArticleRead"):
		// cafe.naver.com/ArticleRead.nhn?clubid=X&articleid=Y -> /X/Y
		clubID := query.Get("clubid")
		articleID := query.Get("articleid")
		if clubID != "" && articleID != "" {
			path = "/" + clubID + "/" + articleID
		}
	}

	return host + strings.ToLower(path)
}

// SameContentURL reports whether two URLs identify the same posted content
// after canonicalization.
func SameContentURL(a, b string) bool {
	ca := CanonicalizeForMatch(a)
	return ca != "" && ca == CanonicalizeForMatch(b)
}

// Package naming derives stable identities and deterministic local paths for
// parsed memories. Everything here is a pure function of the descriptor, so
// re-runs map each memory to the same target without consulting any state.
package naming

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"memfetch/internal/domain"
)

const (
	exportTimeLayout = "2006-01-02 15:04:05"
	fileTimeLayout   = "2006-01-02_15-04-05"

	// uniqueLen bounds the identity component of a filename.
	uniqueLen = 16
)

// ExtractKey returns the sid query parameter of the locator, the remote
// identity of the asset. Absence (malformed locator, missing parameter) is
// reported, never an error.
func ExtractKey(locator string) (string, bool) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", false
	}
	sid := u.Query().Get("sid")
	if sid == "" {
		return "", false
	}
	return sid, true
}

// Fingerprint is the dedup fallback for locators without a sid: a fixed
// 16-hex-char xxhash of the locator string. Stable across processes, unlike
// a runtime-seeded map hash.
func Fingerprint(locator string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(locator))
}

// Key returns the dedup key for a locator: the sid when present, otherwise
// the locator fingerprint.
func Key(locator string) string {
	if sid, ok := ExtractKey(locator); ok {
		return sid
	}
	return Fingerprint(locator)
}

// Filename derives the deterministic local name for a memory:
// <date>_<unique16>.<ext>. An unparseable timestamp yields the literal
// marker "unknown_date" instead of failing the descriptor.
func Filename(m domain.Memory) string {
	unique := Key(m.Locator)
	if len(unique) > uniqueLen {
		unique = unique[:uniqueLen]
	}
	return fmt.Sprintf("%s_%s.%s", datePart(m.Timestamp), unique, m.Kind.Extension())
}

// TargetPath places videos under videos/ and everything else under images/.
func TargetPath(outDir string, m domain.Memory) string {
	sub := "images"
	if m.Kind == domain.KindVideo {
		sub = "videos"
	}
	return filepath.Join(outDir, sub, Filename(m))
}

func datePart(timestamp string) string {
	trimmed := strings.TrimSuffix(strings.TrimSpace(timestamp), " UTC")
	t, err := time.Parse(exportTimeLayout, trimmed)
	if err != nil {
		return "unknown_date"
	}
	return t.Format(fileTimeLayout)
}

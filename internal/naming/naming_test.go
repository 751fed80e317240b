package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memfetch/internal/domain"
)

func TestExtractKey(t *testing.T) {
	sid, ok := ExtractKey("https://cf.example.com/dmd/memories?uid=u1&sid=0123456789abcdefXYZ")
	require.True(t, ok)
	assert.Equal(t, "0123456789abcdefXYZ", sid)

	_, ok = ExtractKey("https://cf.example.com/dmd/memories?uid=u1")
	assert.False(t, ok)

	// control characters make url.Parse fail; absence, never an error
	_, ok = ExtractKey("https://bad host\x7f/?sid=abc")
	assert.False(t, ok)
}

func TestFingerprintIsStable(t *testing.T) {
	a := Fingerprint("https://example.com/a")
	b := Fingerprint("https://example.com/a")
	other := Fingerprint("https://example.com/b")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, other)
	assert.Len(t, a, 16)
}

func TestKeyFallsBackToFingerprint(t *testing.T) {
	withSid := "https://example.com/m?sid=abc"
	assert.Equal(t, "abc", Key(withSid))

	noSid := "https://example.com/m?uid=u1"
	assert.Equal(t, Fingerprint(noSid), Key(noSid))
}

func TestFilename(t *testing.T) {
	m := domain.Memory{
		Locator:   "https://example.com/m?sid=0123456789abcdefXYZ",
		Timestamp: "2024-03-01 12:30:45 UTC",
		Kind:      domain.KindImage,
	}
	assert.Equal(t, "2024-03-01_12-30-45_0123456789abcdef.jpg", Filename(m))

	// identical on every call
	assert.Equal(t, Filename(m), Filename(m))
}

func TestFilenameUnparseableDate(t *testing.T) {
	m := domain.Memory{
		Locator:   "https://example.com/m?sid=0123456789abcdefXYZ",
		Timestamp: "March 1st, whenever",
		Kind:      domain.KindVideo,
	}
	assert.Equal(t, "unknown_date_0123456789abcdef.mp4", Filename(m))
}

func TestFilenameWithoutUTCSuffix(t *testing.T) {
	m := domain.Memory{
		Locator:   "https://example.com/m?sid=shortsid",
		Timestamp: "2023-12-31 23:59:59",
		Kind:      domain.KindUnknown,
	}
	assert.Equal(t, "2023-12-31_23-59-59_shortsid.bin", Filename(m))
}

func TestTargetPath(t *testing.T) {
	video := domain.Memory{Locator: "https://example.com/m?sid=v1", Timestamp: "2024-01-01 00:00:00", Kind: domain.KindVideo}
	image := domain.Memory{Locator: "https://example.com/m?sid=i1", Timestamp: "2024-01-01 00:00:00", Kind: domain.KindImage}
	unknown := domain.Memory{Locator: "https://example.com/m?sid=u1", Timestamp: "2024-01-01 00:00:00", Kind: domain.KindUnknown}

	assert.Equal(t, "out/videos/2024-01-01_00-00-00_v1.mp4", TargetPath("out", video))
	assert.Equal(t, "out/images/2024-01-01_00-00-00_i1.jpg", TargetPath("out", image))
	assert.Equal(t, "out/images/2024-01-01_00-00-00_u1.bin", TargetPath("out", unknown))
}

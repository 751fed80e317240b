package domain

import "strings"

// MediaKind is the media type label found in the export row.
type MediaKind int

const (
	KindUnknown MediaKind = iota
	KindImage
	KindVideo
)

func ParseMediaKind(label string) MediaKind {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "image":
		return KindImage
	case "video":
		return KindVideo
	default:
		return KindUnknown
	}
}

// Extension returns the local file extension for the kind.
func (k MediaKind) Extension() string {
	switch k {
	case KindVideo:
		return "mp4"
	case KindImage:
		return "jpg"
	default:
		return "bin"
	}
}

func (k MediaKind) String() string {
	switch k {
	case KindVideo:
		return "Video"
	case KindImage:
		return "Image"
	default:
		return "Unknown"
	}
}

// TransferMode selects the fetch protocol for a memory.
type TransferMode int

const (
	// ModeDirect is a single authenticated GET against the locator.
	ModeDirect TransferMode = iota
	// ModeIndirect POSTs the locator's query string to its base URL and
	// GETs the URL returned in the response body.
	ModeIndirect
)

// Memory is one download descriptor parsed out of the export.
// Immutable once produced.
type Memory struct {
	Locator   string
	Timestamp string
	Kind      MediaKind
	Mode      TransferMode
}

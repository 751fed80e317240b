// Package archive normalizes container payloads after transfer. Some remote
// assets arrive as a ZIP holding the base media plus overlay layers; only the
// entry named *-main.jpg / *-main.mp4 is the asset itself.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"memfetch/internal/domain"
)

// ZIP file signatures (magic bytes)
var zipSignatures = [][]byte{
	{0x50, 0x4B, 0x03, 0x04}, // Standard ZIP
	{0x50, 0x4B, 0x05, 0x06}, // Empty ZIP
	{0x50, 0x4B, 0x07, 0x08}, // Spanned ZIP
}

var mainEntrySuffixes = []string{"-main.jpg", "-main.mp4"}

// IsArchive sniffs the file's magic bytes for a ZIP signature. Read errors
// report false; the caller treats the payload as plain media.
func IsArchive(fs afero.Fs, path string) bool {
	f, err := fs.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, 4)
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}

	for _, sig := range zipSignatures {
		if bytes.Equal(header, sig) {
			return true
		}
	}
	return false
}

// ExtractMain replaces the archive at path with the bytes of its -main media
// entry, via a temp sibling and rename so a truncated file is never visible
// under the final name. Returns domain.ErrNoMainEntry when the archive has no
// such entry; the original file is left untouched on any error.
func ExtractMain(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("could not read archive: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("could not open archive: %w", err)
	}

	entry := findMainEntry(zr)
	if entry == nil {
		return domain.ErrNoMainEntry
	}

	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("could not open entry %s: %w", entry.Name, err)
	}
	content, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("could not read entry %s: %w", entry.Name, err)
	}

	tmp := filepath.Join(filepath.Dir(path), "temp_"+filepath.Base(path))
	if err := afero.WriteFile(fs, tmp, content, 0644); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("could not write extracted entry: %w", err)
	}

	if err := fs.Remove(path); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("could not replace archive: %w", err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("could not replace archive: %w", err)
	}
	return nil
}

func findMainEntry(zr *zip.Reader) *zip.File {
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		for _, suffix := range mainEntrySuffixes {
			if strings.HasSuffix(name, suffix) {
				return f
			}
		}
	}
	return nil
}

// Package tag stamps capture dates onto already-downloaded media, parsed back
// out of the deterministic filenames the downloader produced. Date writing is
// delegated to the system exiftool binary.
package tag

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"memfetch/internal/logger"
)

// filenameDateRe matches the YYYY-MM-DD_HH-MM-SS prefix produced by the
// downloader's naming scheme.
var filenameDateRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})`)

const exifTimeLayout = "2006:01:02 15:04:05"

var (
	imageExtensions = []string{".jpg", ".jpeg"}
	videoExtensions = []string{".mp4", ".mov"}
)

// Stats mirror the downloader's counters for the tagging pass.
type Stats struct {
	Total     int
	Processed int
	Skipped   int
	Failed    int
}

type Tagger struct {
	fs    afero.Fs
	dir   string
	force bool
	log   *logger.Logger

	exiftool string
}

// New resolves the exiftool binary up front; a missing binary is a fatal
// precondition, not a per-file failure.
func New(fs afero.Fs, dir string, force bool, log *logger.Logger) (*Tagger, error) {
	path, err := exec.LookPath("exiftool")
	if err != nil {
		return nil, fmt.Errorf("exiftool binary not found in PATH: %w", err)
	}
	return &Tagger{fs: fs, dir: dir, force: force, log: log, exiftool: path}, nil
}

// Run processes every media file under dir and returns the counters.
func (t *Tagger) Run(ctx context.Context, progress func(path string)) (Stats, error) {
	files, err := t.FindMedia()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(files)}
	for _, path := range files {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		switch t.process(ctx, path) {
		case nil:
			stats.Processed++
		case errSkip:
			stats.Skipped++
		default:
			stats.Failed++
		}

		if progress != nil {
			progress(path)
		}
	}
	return stats, nil
}

var errSkip = fmt.Errorf("skipped")

func (t *Tagger) process(ctx context.Context, path string) error {
	name := filepath.Base(path)

	when, ok := ParseFilenameDate(name)
	if !ok {
		t.log.Debug("No date in filename, skipping: %s", name)
		return errSkip
	}

	if !t.force && t.hasDate(ctx, path) {
		return errSkip
	}

	if err := t.stamp(ctx, path, when); err != nil {
		t.log.Error("Could not tag %s: %v", name, err)
		return err
	}
	return nil
}

// hasDate asks exiftool whether the file already carries a creation date.
func (t *Tagger) hasDate(ctx context.Context, path string) bool {
	cmd := exec.CommandContext(ctx, t.exiftool, "-s3", "-DateTimeOriginal", "-CreateDate", path)
	out, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) != ""
}

// stamp writes the creation-date tags appropriate for the file type.
// -overwrite_original keeps exiftool from leaving backup siblings around.
func (t *Tagger) stamp(ctx context.Context, path string, when time.Time) error {
	stamp := when.Format(exifTimeLayout)

	args := []string{"-overwrite_original"}
	if isVideo(path) {
		args = append(args,
			"-CreateDate="+stamp,
			"-ModifyDate="+stamp,
			"-MediaCreateDate="+stamp,
			"-MediaModifyDate="+stamp,
			"-TrackCreateDate="+stamp,
			"-TrackModifyDate="+stamp,
		)
	} else {
		args = append(args,
			"-DateTimeOriginal="+stamp,
			"-CreateDate="+stamp,
			"-ModifyDate="+stamp,
		)
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, t.exiftool, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("exiftool failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

// FindMedia lists taggable files under dir/images and dir/videos, falling
// back to dir itself when neither subdirectory holds anything. Sorted for a
// stable processing order.
func (t *Tagger) FindMedia() ([]string, error) {
	var files []string

	imagesGlobs := globPatterns(filepath.Join(t.dir, "images"), imageExtensions)
	videosGlobs := globPatterns(filepath.Join(t.dir, "videos"), videoExtensions)
	for _, pattern := range append(imagesGlobs, videosGlobs...) {
		matches, err := afero.Glob(t.fs, pattern)
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		for _, pattern := range globPatterns(t.dir, append(imageExtensions, videoExtensions...)) {
			matches, err := afero.Glob(t.fs, pattern)
			if err != nil {
				return nil, err
			}
			files = append(files, matches...)
		}
	}

	sort.Strings(files)
	return files, nil
}

// ParseFilenameDate extracts the capture time encoded in a downloaded
// filename. Reports false for names outside the naming scheme.
func ParseFilenameDate(name string) (time.Time, bool) {
	match := filenameDateRe.FindString(name)
	if match == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02_15-04-05", match)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func isVideo(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, v := range videoExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

func globPatterns(dir string, extensions []string) []string {
	patterns := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		patterns = append(patterns, filepath.Join(dir, "*"+ext))
	}
	return patterns
}

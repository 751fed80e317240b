package domain

import "errors"

// ErrEmptyBody indicates a transfer completed but produced zero bytes
var ErrEmptyBody = errors.New("downloaded file is empty")

// ErrNoMainEntry indicates an overlay archive without a -main media entry
var ErrNoMainEntry = errors.New("archive has no -main entry")

package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch invokes onChange after the config file at path changes. Rapid
// successive writes are coalesced, since editors tend to emit several
// events per save. The returned stop function releases the watcher.
func Watch(path string, log zerolog.Logger, onChange func()) (func(), error) {
	// Watch the directory, not the file: editors replace files on
	// save and the old inode stops reporting.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})

	go func() {
		defer watcher.Close()

		var debounceTimer *time.Timer
		const debounceDelay = 250 * time.Millisecond

		for {
			select {
			case <-done:
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}

				log.Debug().Str("path", path).Str("op", event.Op.String()).Msg("Config file changed")

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, onChange)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("Config watch error")
			}
		}
	}()

	stop := func() { close(done) }
	return stop, nil
}

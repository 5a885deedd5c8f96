package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch re-imports documents under root whenever they are created or
// written, and drops the records of removed or renamed ones, until ctx is
// cancelled. New subdirectories are watched too.
func (im *Importer) Watch(ctx context.Context, root string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	log.Printf("[ingest] watching %s", root)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				if isSupportedFile(event.Name) {
					if _, err := im.forget(ctx, event.Name); err != nil {
						log.Printf("[ingest] %v", err)
					}
				}
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					if err := w.Add(event.Name); err != nil {
						log.Printf("[ingest] watching %s: %v", event.Name, err)
					}
				}
				continue
			}
			if !isSupportedFile(event.Name) {
				continue
			}

			n, err := im.ImportFile(ctx, event.Name)
			if err != nil {
				log.Printf("[ingest] re-importing %s: %v", event.Name, err)
				continue
			}
			log.Printf("[ingest] re-imported %s (%d records)", event.Name, n)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("[ingest] watcher error: %v", err)
		}
	}
}

package shader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/richinsley/asyncgl/logger"
)

const defaultDebounce = 150 * time.Millisecond

// Watcher reports programs whose source files change in a shader
// directory. Editors tend to write a file several times in a row, so
// events are collected for a short while before being published.
type Watcher struct {
	dir      string
	fsw      *fsnotify.Watcher
	changes  chan string
	debounce time.Duration
	log      *logger.Logger
}

func NewWatcher(dir string, debounce time.Duration, log *logger.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create shader watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{
		dir:      dir,
		fsw:      fsw,
		changes:  make(chan string, len(builtin)),
		debounce: debounce,
		log:      log,
	}, nil
}

// Changes delivers program names. It is closed when Run returns.
func (w *Watcher) Changes() <-chan string { return w.changes }

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.changes)
	defer func() { _ = w.fsw.Close() }()

	w.log.Info().Str("dir", w.dir).Msg("Watching shader sources")

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name, ok := ProgramOf(event.Name)
			if !ok {
				continue
			}
			w.log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Shader source changed")
			pending[name] = struct{}{}
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("Shader watcher error")
		case <-timer.C:
			for name := range pending {
				select {
				case w.changes <- name:
				default:
					w.log.Warn().Str("program", name).Msg("Reload queue is full, dropping change")
				}
				delete(pending, name)
			}
		}
	}
}

// ProgramOf maps a shader file to the program it belongs to.
func ProgramOf(path string) (string, bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext != Vertex.Ext() && ext != Fragment.Ext() {
		return "", false
	}
	name := strings.TrimSuffix(base, ext)
	if _, ok := builtin[name]; !ok {
		return "", false
	}
	return name, true
}

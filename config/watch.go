package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 基于 fsnotify 监听配置文件，变化后重新加载并回调。
// 监听的是所在目录，编辑器“写临时文件再 rename”的方式也能触发。
type Watcher struct {
	Path     string
	Debounce time.Duration
	OnError  func(error)

	fsw *fsnotify.Watcher
}

// NewWatcher 创建并注册监听；调用方负责 Run 或 Close。
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch config dir: %w", err)
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Watcher{Path: path, Debounce: debounce, fsw: fsw}, nil
}

// Run 阻塞直到 ctx 取消；每次合并后的变化都会重新加载一次。
// 加载失败的配置不会回调，只交给 OnError。
func (w *Watcher) Run(ctx context.Context, onUpdate func(AppConfig)) error {
	defer w.fsw.Close()
	target := filepath.Clean(w.Path)
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(w.Debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.reportError(err)
		case <-pending:
			pending = nil
			cfg, err := LoadWithEnvOverrides(w.Path)
			if err != nil {
				w.reportError(fmt.Errorf("reload config: %w", err))
				continue
			}
			if onUpdate != nil {
				onUpdate(cfg)
			}
		}
	}
}

// Close 未调用 Run 时释放资源
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) reportError(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}

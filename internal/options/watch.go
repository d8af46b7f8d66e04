package options

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// LoadFile 读取 YAML 选项目录文件
func LoadFile(path string) (Lists, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取选项目录 %s 失败: %w", path, err)
	}
	return Parse(data)
}

// Watch 加载 path 并合并进 catalog，随后监听文件变更自动重载，直到 ctx 结束。
// 监听所在目录而非文件本身：编辑器常以重命名方式替换文件。
func Watch(ctx context.Context, path string, catalog *Catalog, logger *zap.Logger) error {
	lists, err := LoadFile(path)
	if err != nil {
		return err
	}
	catalog.Merge(lists)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				lists, err := LoadFile(path)
				if err != nil {
					logger.Warn("选项目录重载失败，保留旧目录", zap.String("file", path), zap.Error(err))
					continue
				}
				catalog.Merge(lists)
				logger.Info("选项目录已重载", zap.String("file", path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("选项目录监听异常", zap.Error(err))
			}
		}
	}()
	return nil
}

package propwatch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ConfigSource 用于配置 FileSource
//
// Path：YAML或JSON文件路径，顶层必须是映射
// Debounce：事件合并的时间间隔, 默认 10ms
// EventBuffer：EventChan的缓冲大小, 默认 16
// Logger：结构化日志，默认丢弃
type ConfigSource struct {
	Path        string
	Debounce    time.Duration
	EventBuffer int
	Logger      *slog.Logger
}

// ReloadEvent 表示一次重新加载的结果
//
// Path：源文件路径
// Op：触发本次加载的fsnotify操作（合并后的），手动Reload时为0
// Added：新定义的属性
// Changed：值发生变化并已通过 Object.Set 赋值的属性
// Err：读取、解析或赋值时的错误（赋值错误会被合并）
type ReloadEvent struct {
	Path    string
	Op      fsnotify.Op
	Added   []string
	Changed []string
	Err     error
}

// FileSource 把文件的顶层键映射为对象的属性，并在文件变化时重新赋值
//
// 赋值走 Object.Set，所以已被监听的属性会触发观察者管线。
// 文件中被删除的键不会从对象上删除
type FileSource struct {
	cfg    ConfigSource
	target *Object
	logger *slog.Logger

	reloadMu sync.Mutex

	mu        sync.Mutex
	fsWatcher *fsnotify.Watcher
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	// 事件合并(防抖)
	pending   fsnotify.Op
	aggTicker *time.Ticker

	// 向外部暴露的加载事件通道，Stop后关闭
	EventChan chan ReloadEvent
}

// NewFileSource 创建 FileSource 并立即加载一次文件
func NewFileSource(target *Object, cfg ConfigSource) (*FileSource, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if cfg.Path == "" {
		return nil, errors.New("source path is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 10 * time.Millisecond
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 16
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source path %s: %w", cfg.Path, err)
	}
	cfg.Path = abs

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &FileSource{
		cfg:       cfg,
		target:    target,
		logger:    logger.With("source", abs),
		stopChan:  make(chan struct{}),
		EventChan: make(chan ReloadEvent, cfg.EventBuffer),
	}
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Start 开始监控文件
//
// 监控的是文件所在目录，这样编辑器"写临时文件再重命名"的保存方式也能被捕获
func (s *FileSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fsWatcher != nil {
		return errors.New("source already started")
	}
	select {
	case <-s.stopChan:
		return errors.New("source stopped")
	default:
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(s.cfg.Path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", s.cfg.Path, err)
	}
	s.fsWatcher = fsw
	s.aggTicker = time.NewTicker(s.cfg.Debounce)

	s.wg.Add(1)
	go s.run()
	return nil
}

// Stop 停止监控并关闭 EventChan，可重复调用
func (s *FileSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()

		s.mu.Lock()
		if s.fsWatcher != nil {
			_ = s.fsWatcher.Close()
		}
		if s.aggTicker != nil {
			s.aggTicker.Stop()
		}
		s.mu.Unlock()

		close(s.EventChan)
	})
}

// Reload 读取文件并把变化应用到对象上
//
// 新键被定义为数据属性；已有且值不同（reflect.DeepEqual）的键通过 Object.Set 赋值
func (s *FileSource) Reload() (ReloadEvent, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	ev := ReloadEvent{Path: s.cfg.Path}
	values, err := loadDocument(s.cfg.Path)
	if err != nil {
		ev.Err = err
		return ev, err
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		value := values[key]
		if !s.target.Has(key) {
			if err := s.target.Define(key, DataProperty(value)); err != nil {
				errs = append(errs, err)
				continue
			}
			ev.Added = append(ev.Added, key)
			continue
		}
		if reflect.DeepEqual(s.target.Get(key), value) {
			continue
		}
		if err := s.target.Set(key, value); err != nil {
			errs = append(errs, fmt.Errorf("set %q: %w", key, err))
			continue
		}
		ev.Changed = append(ev.Changed, key)
	}
	ev.Err = errors.Join(errs...)
	return ev, ev.Err
}

// run 读取fsnotify事件，按Debounce合并后触发Reload
func (s *FileSource) run() {
	defer s.wg.Done()
	for {
		select {
		case ev, ok := <-s.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.cfg.Path {
				continue
			}
			s.pending |= ev.Op

		case err, ok := <-s.fsWatcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("fsnotify error", "error", err)

		case <-s.aggTicker.C:
			if s.pending == 0 {
				continue
			}
			op := s.pending
			s.pending = 0
			s.flush(op)

		case <-s.stopChan:
			return
		}
	}
}

func (s *FileSource) flush(op fsnotify.Op) {
	ev, err := s.Reload()
	ev.Op = op
	if err != nil {
		s.logger.Warn("reload failed", "op", op.String(), "error", err)
	} else if len(ev.Added)+len(ev.Changed) > 0 {
		s.logger.Debug("source reloaded", "added", len(ev.Added), "changed", len(ev.Changed))
	}

	select {
	case s.EventChan <- ev:
	case <-s.stopChan:
	}
}

// loadDocument 解析YAML/JSON文件的顶层映射，空文件返回空映射
func loadDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return values, nil
}

// Package prompt 管理分析任务使用的提示词模板。
//
// 内置模板随二进制嵌入，配置的目录中同名的 .txt 文件会覆盖内置版本。
// 模板占位符使用 {name}，字面量花括号写作 {{ 和 }}。
package prompt

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/fsnotify/fsnotify"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/logger"
)

//go:embed templates/*.txt
var builtin embed.FS

const ext = ".txt"

var (
	// ErrNotFound 模板不存在
	ErrNotFound = errors.New("prompt not found")
	// ErrMissingVar 模板引用的占位符没有提供值
	ErrMissingVar = errors.New("prompt variable missing")
)

var placeholderRe = regexp.MustCompile(`\{\{|\}\}|\{([^{}]*)\}`)

// Loader 模板加载器，并发安全
type Loader struct {
	dir string

	mu      sync.RWMutex
	prompts map[string]string
}

// Info 模板概要
type Info struct {
	Name    string
	Length  int
	Lines   int
	Preview string
}

// NewLoader 加载内置模板并用 dir 中的文件覆盖；dir 为空或不存在时只用内置模板
func NewLoader(dir string) (*Loader, error) {
	l := &Loader{dir: dir}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Dir 覆盖目录
func (l *Loader) Dir() string { return l.dir }

// Reload 重新加载全部模板
func (l *Loader) Reload() error {
	prompts := make(map[string]string)

	builtinCount, err := readTemplates(builtin, "templates", prompts)
	if err != nil {
		return fmt.Errorf("load builtin prompts: %w", err)
	}

	dirCount := 0
	if l.dir != "" {
		if st, err := os.Stat(l.dir); err != nil || !st.IsDir() {
			logger.Log.Warnf("Prompt 目录不存在，仅使用内置模板: %s", l.dir)
		} else {
			dirCount, err = readTemplates(os.DirFS(l.dir), ".", prompts)
			if err != nil {
				return fmt.Errorf("load prompts from %s: %w", l.dir, err)
			}
		}
	}

	l.mu.Lock()
	l.prompts = prompts
	l.mu.Unlock()

	logger.Log.Infof("成功加载 %d 个Prompt（内置 %d，目录 %d）", len(prompts), builtinCount, dirCount)
	return nil
}

func readTemplates(fsys fs.FS, root string, into map[string]string) (int, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(root, e.Name()))
		if err != nil {
			return n, err
		}
		name := strings.TrimSuffix(e.Name(), ext)
		into[name] = strings.TrimSpace(string(data))
		n++
		logger.Log.Debugf("已加载Prompt: %s", name)
	}
	return n, nil
}

// Get 返回原始模板
func (l *Loader) Get(name string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tpl, ok := l.prompts[name]
	if !ok {
		return "", fmt.Errorf("%w: %s (available: %s)", ErrNotFound, name, strings.Join(l.listLocked(), ", "))
	}
	return tpl, nil
}

// List 按名称排序返回全部模板名
func (l *Loader) List() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listLocked()
}

func (l *Loader) listLocked() []string {
	names := make([]string, 0, len(l.prompts))
	for name := range l.prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info 返回模板概要
func (l *Loader) Info(name string) (Info, error) {
	tpl, err := l.Get(name)
	if err != nil {
		return Info{}, err
	}
	preview := tpl
	if r := []rune(tpl); len(r) > 100 {
		preview = string(r[:100]) + "..."
	}
	return Info{
		Name:    name,
		Length:  len([]rune(tpl)),
		Lines:   strings.Count(tpl, "\n") + 1,
		Preview: preview,
	}, nil
}

// Placeholders 返回模板引用的占位符，去重且保持出现顺序
func Placeholders(tpl string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(tpl, -1) {
		if m[0] == "{{" || m[0] == "}}" {
			continue
		}
		name := strings.TrimSpace(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Render 渲染模板，所有占位符都必须有值
func (l *Loader) Render(ctx context.Context, name string, vars map[string]any) (string, error) {
	tpl, err := l.Get(name)
	if err != nil {
		return "", err
	}

	var missing []string
	for _, p := range Placeholders(tpl) {
		if _, ok := vars[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s needs {%s}", ErrMissingVar, name, strings.Join(missing, "}, {"))
	}

	msgs, err := schema.UserMessage(tpl).Format(ctx, vars, schema.FString)
	if err != nil {
		return "", fmt.Errorf("format prompt %s: %w", name, err)
	}
	return msgs[0].Content, nil
}

// Watch 监听覆盖目录，文件变化后自动 Reload，ctx 结束时停止
func (l *Loader) Watch(ctx context.Context, onReload func(error)) error {
	if l.dir == "" {
		return fmt.Errorf("prompt dir not configured")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", l.dir, err)
	}

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
				if !strings.HasSuffix(ev.Name, ext) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				logger.Log.Infof("检测到Prompt变更: %s", ev.Name)
				err := l.Reload()
				if err != nil {
					logger.Log.Errorf("重新加载Prompt失败: %v", err)
				}
				if onReload != nil {
					onReload(err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Log.Errorf("Prompt 监听出错: %v", err)
			}
		}
	}()
	return nil
}

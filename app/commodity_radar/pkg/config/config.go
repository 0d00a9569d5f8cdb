package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm"
	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/logger"
)

// DefaultPath 默认配置文件
const DefaultPath = "config/settings.toml"

const (
	defaultProvider    = "zhipu"
	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
	defaultEnvironment = "development"
)

// 这些协议的客户端自带默认地址，base_url 可省略
var optionalBaseURL = map[string]bool{
	"zhipu":     true,
	"gemini":    true,
	"gemini3":   true,
	"claude":    true,
	"anthropic": true,
}

// ${VAR} 或 $VAR
var envRef = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig                 `toml:"llm" yaml:"llm"`
	Providers   map[string]ProviderConfig `toml:"llm_providers" yaml:"llm_providers"`
	Prompts     PromptsConfig             `toml:"prompts" yaml:"prompts"`
	Concurrency ConcurrencyConfig         `toml:"concurrency" yaml:"concurrency"`
	Search      SearchConfig              `toml:"search" yaml:"search"`
	Log         LogConfig                 `toml:"log" yaml:"log"`
	Server      ServerConfig              `toml:"server" yaml:"server"`

	path string
	refs []string // 配置文件中引用的环境变量名
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider" yaml:"default_provider"`
}

// ProviderConfig 单个提供商配置
type ProviderConfig struct {
	Type        string   `toml:"type" yaml:"type"` // 协议，为空时按提供商 id 推断
	APIKey      string   `toml:"api_key" yaml:"api_key"`
	BaseURL     string   `toml:"base_url" yaml:"base_url"`
	Model       string   `toml:"model" yaml:"model"`
	Temperature *float64 `toml:"temperature" yaml:"temperature"`
	MaxTokens   int      `toml:"max_tokens" yaml:"max_tokens"`
	Timeout     int      `toml:"timeout" yaml:"timeout"` // 秒
}

// PromptsConfig 提示词模板配置
type PromptsConfig struct {
	Dir   string `toml:"dir" yaml:"dir"`
	Watch bool   `toml:"watch" yaml:"watch"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS         int `toml:"qps" yaml:"qps"`
	RPM         int `toml:"rpm" yaml:"rpm"`
	MaxParallel int `toml:"max_parallel" yaml:"max_parallel"`
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider   string        `toml:"provider" yaml:"provider"`
	MaxResults int           `toml:"max_results" yaml:"max_results"`
	Tavily     TavilyConfig  `toml:"tavily" yaml:"tavily"`
	SearXNG    SearXNGConfig `toml:"searxng" yaml:"searxng"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `toml:"api_key" yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `toml:"base_url" yaml:"base_url"`
	Timeout int    `toml:"timeout" yaml:"timeout"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	File  string `toml:"file" yaml:"file"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	HTTPAddr string `toml:"http_addr" yaml:"http_addr"`
	Timeout  int    `toml:"timeout" yaml:"timeout"` // 秒
}

// 配置格式：先解码成通用结构替换环境变量，再编码回去解码到 Config
type codec struct {
	unmarshal func([]byte, any) error
	marshal   func(any) ([]byte, error)
}

var codecs = map[string]codec{
	".toml": {unmarshal: toml.Unmarshal, marshal: toml.Marshal},
	".yaml": {unmarshal: yaml.Unmarshal, marshal: yaml.Marshal},
	".yml":  {unmarshal: yaml.Unmarshal, marshal: yaml.Marshal},
}

// LoadConfig 从指定路径加载配置
//
// .toml 与 .yaml/.yml 均支持。解析后再用环境变量替换字符串值中的 ${VAR} 和 $VAR 引用，
// 找不到的引用保持原样；注释里的引用不处理。
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("配置文件未找到: %w", err)
	}
	c, ok := codecs[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}

	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}

	var tree map[string]any
	if err := c.unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("解析配置文件失败 %s: %w", path, err)
	}
	refs := make(map[string]bool)
	expanded, err := c.marshal(expand(tree, env, refs))
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败 %s: %w", path, err)
	}

	cfg := &Config{path: path, refs: sortedKeys(refs)}
	if err := c.unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败 %s: %w", path, err)
	}

	logger.Log.Debugf("配置文件加载成功: %s", path)
	return cfg, nil
}

// expand 递归替换字符串值中的环境变量引用，并记录引用到的变量名
func expand(v any, env map[string]string, refs map[string]bool) any {
	switch val := v.(type) {
	case string:
		return substitute(val, env, refs)
	case map[string]any:
		for k, item := range val {
			val[k] = expand(item, env, refs)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = expand(item, env, refs)
		}
		return val
	default:
		return v
	}
}

// LoadEnv 按优先级合并环境变量：系统环境变量 < .env < config/.env.<ENVIRONMENT> < $ENV_FILE
func LoadEnv() (map[string]string, error) {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	files := []string{".env", filepath.Join("config", ".env."+environment())}
	if custom := os.Getenv("ENV_FILE"); custom != "" {
		files = append(files, custom)
	}

	for _, f := range files {
		vars, err := gotenv.Read(f)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.Log.Debugf("环境文件不存在: %s", f)
				continue
			}
			return nil, fmt.Errorf("加载环境文件失败 %s: %w", f, err)
		}
		for k, v := range vars {
			env[k] = v
		}
		logger.Log.Debugf("从 %s 加载了 %d 个环境变量", f, len(vars))
	}
	return env, nil
}

func environment() string {
	if e := os.Getenv("ENVIRONMENT"); e != "" {
		return e
	}
	return defaultEnvironment
}

func substitute(s string, env map[string]string, refs map[string]bool) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		name := refName(m)
		refs[name] = true
		if v, ok := env[name]; ok {
			return v
		}
		logger.Log.Warnf("环境变量未找到: %s", name)
		return m
	})
}

func refName(m string) string {
	sub := envRef.FindStringSubmatch(m)
	if sub[1] != "" {
		return sub[1]
	}
	return sub[2]
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path 配置文件路径
func (c *Config) Path() string { return c.path }

// DefaultProvider 默认提供商，未配置时为 zhipu
func (c *Config) DefaultProvider() string {
	if c.LLM.DefaultProvider != "" {
		return c.LLM.DefaultProvider
	}
	return defaultProvider
}

// ProviderIDs 已配置的提供商，按名称排序
func (c *Config) ProviderIDs() []string {
	ids := make([]string, 0, len(c.Providers))
	for id := range c.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Provider 校验并解析提供商配置；id 为空时使用默认提供商
func (c *Config) Provider(id string) (llm.Config, error) {
	if id == "" {
		id = c.DefaultProvider()
	}
	p, ok := c.Providers[id]
	if !ok {
		return llm.Config{}, fmt.Errorf("未找到提供商 %s 的配置", id)
	}

	var missing []string
	if strings.TrimSpace(p.APIKey) == "" {
		missing = append(missing, "api_key")
	}
	if p.BaseURL == "" && !optionalBaseURL[strings.ToLower(p.variant(id))] {
		missing = append(missing, "base_url")
	}
	if p.Model == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return llm.Config{}, fmt.Errorf("提供商 %s 缺少必需的配置项: %s", id, strings.Join(missing, ", "))
	}
	if strings.HasPrefix(p.APIKey, "${") {
		return llm.Config{}, fmt.Errorf("提供商 %s 的 API_KEY 未正确配置", id)
	}

	cfg := llm.Config{
		Provider:    id,
		Variant:     p.Type,
		APIKey:      p.APIKey,
		BaseURL:     p.BaseURL,
		Model:       p.Model,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		Timeout:     time.Duration(p.Timeout) * time.Second,
	}
	if p.Temperature != nil {
		cfg.Temperature = *p.Temperature
	}
	if p.MaxTokens > 0 {
		cfg.MaxTokens = p.MaxTokens
	}
	return cfg, nil
}

func (p ProviderConfig) variant(id string) string {
	if p.Type != "" {
		return p.Type
	}
	return id
}

// ServerTimeout HTTP 服务超时，未配置时为 300 秒
func (c *Config) ServerTimeout() time.Duration {
	if c.Server.Timeout > 0 {
		return time.Duration(c.Server.Timeout) * time.Second
	}
	return 300 * time.Second
}

// Validation 配置校验结果
type Validation struct {
	Errors   []string
	Warnings []string
}

// Valid 没有错误即为有效
func (v Validation) Valid() bool { return len(v.Errors) == 0 }

// Validate 校验配置完整性
func (c *Config) Validate() Validation {
	var v Validation
	if len(c.Providers) == 0 {
		v.Errors = append(v.Errors, "未找到任何 LLM 提供商配置")
		return v
	}

	for _, id := range c.ProviderIDs() {
		if _, err := c.Provider(id); err != nil {
			v.Errors = append(v.Errors, err.Error())
		}
	}

	if _, ok := c.Providers[c.DefaultProvider()]; !ok {
		v.Warnings = append(v.Warnings, fmt.Sprintf("默认提供商 '%s' 未在 llm_providers 中配置", c.DefaultProvider()))
	}

	switch c.Search.Provider {
	case "", "tavily", "searxng":
	default:
		v.Warnings = append(v.Warnings, fmt.Sprintf("未知的搜索服务: %s", c.Search.Provider))
	}
	return v
}

// MaskKey 隐藏密钥，只保留前 8 位
func MaskKey(key string) string {
	if len(key) > 8 {
		return key[:8] + "..."
	}
	return "***"
}

// EnvTemplate 生成环境变量模板：配置中引用的每个变量一行
func (c *Config) EnvTemplate() string {
	var sb strings.Builder
	sb.WriteString("# 环境变量模板文件\n")
	sb.WriteString("# 复制此文件为 .env 并填入实际值\n\n")
	for _, name := range c.refs {
		fmt.Fprintf(&sb, "%s=your_%s_here\n", name, strings.ToLower(name))
	}
	return sb.String()
}

// EnvRefs 配置中引用的环境变量名
func (c *Config) EnvRefs() []string {
	return append([]string(nil), c.refs...)
}

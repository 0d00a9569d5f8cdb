package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[llm]
default_provider = "zhipu"

[llm_providers.zhipu]
api_key = "${ZHIPU_API_KEY}"
model = "glm-4-plus"
timeout = 60

[llm_providers.deepseek]
api_key = "$DEEPSEEK_API_KEY"
base_url = "https://api.deepseek.com"
model = "deepseek-chat"
temperature = 0.2
max_tokens = 4096

[concurrency]
qps = 2
rpm = 60
max_parallel = 3

[search]
provider = "searxng"

[search.searxng]
base_url = "http://localhost:8888"
`

// chdir 切到临时目录，避免读到仓库里的 .env
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("ENV_FILE", "")
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfig_TOML(t *testing.T) {
	dir := chdir(t)
	t.Setenv("ZHIPU_API_KEY", "zhipu-secret-key")
	t.Setenv("DEEPSEEK_API_KEY", "ds-key-123456")
	path := filepath.Join(dir, "settings.toml")
	writeFile(t, path, sampleTOML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "zhipu", cfg.DefaultProvider())
	assert.Equal(t, []string{"deepseek", "zhipu"}, cfg.ProviderIDs())
	assert.Equal(t, 3, cfg.Concurrency.MaxParallel)
	assert.Equal(t, "http://localhost:8888", cfg.Search.SearXNG.BaseURL)

	zp, err := cfg.Provider("zhipu")
	require.NoError(t, err)
	assert.Equal(t, "zhipu-secret-key", zp.APIKey)
	assert.Equal(t, 0.7, zp.Temperature)
	assert.Equal(t, 1024, zp.MaxTokens)
	assert.Equal(t, 60*time.Second, zp.Timeout)

	ds, err := cfg.Provider("deepseek")
	require.NoError(t, err)
	assert.Equal(t, "ds-key-123456", ds.APIKey)
	assert.Equal(t, 0.2, ds.Temperature)
	assert.Equal(t, 4096, ds.MaxTokens)

	assert.True(t, cfg.Validate().Valid())
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := chdir(t)
	t.Setenv("CLAUDE_KEY", "sk-ant-xyz")
	path := filepath.Join(dir, "settings.yaml")
	writeFile(t, path, `
llm:
  default_provider: claude
llm_providers:
  claude:
    api_key: ${CLAUDE_KEY}
    model: claude-sonnet-4-20250514
log:
  level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	p, err := cfg.Provider("")
	require.NoError(t, err)
	assert.Equal(t, "claude", p.Provider)
	assert.Equal(t, "sk-ant-xyz", p.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_EnvFilePrecedence(t *testing.T) {
	dir := chdir(t)
	t.Setenv("ZHIPU_API_KEY", "from-process")
	t.Setenv("DEEPSEEK_API_KEY", "from-process")
	writeFile(t, filepath.Join(dir, ".env"), "ZHIPU_API_KEY=from-dotenv\nDEEPSEEK_API_KEY=from-dotenv\n")
	writeFile(t, filepath.Join(dir, "config", ".env.development"), "DEEPSEEK_API_KEY='from-development'\n")
	path := filepath.Join(dir, "settings.toml")
	writeFile(t, path, sampleTOML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	zp, err := cfg.Provider("zhipu")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", zp.APIKey)

	ds, err := cfg.Provider("deepseek")
	require.NoError(t, err)
	assert.Equal(t, "from-development", ds.APIKey)
}

func TestLoadConfig_CustomEnvFile(t *testing.T) {
	dir := chdir(t)
	custom := filepath.Join(dir, "secrets.env")
	writeFile(t, custom, "ZHIPU_API_KEY=from-custom\n")
	t.Setenv("ENV_FILE", custom)
	path := filepath.Join(dir, "settings.toml")
	writeFile(t, path, sampleTOML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	zp, err := cfg.Provider("zhipu")
	require.NoError(t, err)
	assert.Equal(t, "from-custom", zp.APIKey)
}

func TestProvider_Errors(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "settings.toml")
	writeFile(t, path, `
[llm]
default_provider = "qwen"

[llm_providers.zhipu]
api_key = "${UNSET_ZHIPU_KEY_FOR_TEST}"
model = "glm-4"

[llm_providers.openai]
api_key = "sk-1"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = cfg.Provider("zhipu")
	assert.ErrorContains(t, err, "API_KEY 未正确配置")

	_, err = cfg.Provider("openai")
	assert.ErrorContains(t, err, "base_url, model")

	_, err = cfg.Provider("missing")
	assert.ErrorContains(t, err, "未找到提供商 missing")

	v := cfg.Validate()
	assert.False(t, v.Valid())
	assert.Len(t, v.Errors, 2)
	assert.Equal(t, []string{"默认提供商 'qwen' 未在 llm_providers 中配置"}, v.Warnings)
}

func TestValidate_NoProviders(t *testing.T) {
	cfg := &Config{}
	v := cfg.Validate()
	assert.Equal(t, []string{"未找到任何 LLM 提供商配置"}, v.Errors)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := chdir(t)

	_, err := LoadConfig(filepath.Join(dir, "nope.toml"))
	assert.Error(t, err)

	ini := filepath.Join(dir, "settings.ini")
	writeFile(t, ini, "x=1")
	_, err = LoadConfig(ini)
	assert.ErrorContains(t, err, "unsupported config format")

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "[llm\n")
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

func TestEnvTemplate(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "settings.toml")
	writeFile(t, path, sampleTOML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"DEEPSEEK_API_KEY", "ZHIPU_API_KEY"}, cfg.EnvRefs())
	assert.Contains(t, cfg.EnvTemplate(), "DEEPSEEK_API_KEY=your_deepseek_api_key_here\n")
	assert.Contains(t, cfg.EnvTemplate(), "ZHIPU_API_KEY=your_zhipu_api_key_here\n")
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "abcdefgh...", MaskKey("abcdefghijk"))
	assert.Equal(t, "***", MaskKey("short"))
}

func TestLoadConfig_SpecialCharsInEnvValues(t *testing.T) {
	dir := chdir(t)
	t.Setenv("ZHIPU_API_KEY", `ab\tcd`)
	t.Setenv("DEEPSEEK_API_KEY", `ab"cd'ef`)
	path := filepath.Join(dir, "settings.toml")
	writeFile(t, path, sampleTOML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	zp, err := cfg.Provider("zhipu")
	require.NoError(t, err)
	assert.Equal(t, `ab\tcd`, zp.APIKey)

	ds, err := cfg.Provider("deepseek")
	require.NoError(t, err)
	assert.Equal(t, `ab"cd'ef`, ds.APIKey)
}

func TestLoadConfig_SpecialCharsInEnvValuesYAML(t *testing.T) {
	dir := chdir(t)
	t.Setenv("CLAUDE_KEY", "a: b\n- c \"d\"")
	path := filepath.Join(dir, "settings.yml")
	writeFile(t, path, `
llm_providers:
  claude:
    api_key: "${CLAUDE_KEY}"
    model: claude-sonnet-4-20250514
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	p, err := cfg.Provider("claude")
	require.NoError(t, err)
	assert.Equal(t, "a: b\n- c \"d\"", p.APIKey)
}

func TestLoadConfig_IgnoresRefsInComments(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "settings.toml")
	writeFile(t, path, "# ${VAR} / $ENV_FILE 只是说明\n"+sampleTOML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"DEEPSEEK_API_KEY", "ZHIPU_API_KEY"}, cfg.EnvRefs())
	assert.NotContains(t, cfg.EnvTemplate(), "VAR=")
	assert.NotContains(t, cfg.EnvTemplate(), "ENV_FILE=")
}

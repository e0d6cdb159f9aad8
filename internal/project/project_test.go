package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/packline/packline"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "packline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadAndApply(t *testing.T) {
	path := writeConfig(t, `
entries:
  app: src/app.tsx
  admin: src/admin.tsx
out_dir: public/build
public_path: /static
target: es2020
format: esm
minify: true
versioned: true
splitting: true
sourcemap: external
loaders:
  ".svg": file
  ".png": dataurl
jsx: automatic
css_modules: true
define:
  __DEV__: "false"
env_prefix: APP_
alias:
  react: preact/compat
external:
  - electron
dev:
  host: 0.0.0.0
  port: 3000
  spa: true
  livereload: false
  cors_origins:
    - https://app.localhost
  proxy:
    /api: http://localhost:9000
  watch:
    - src
`)

	file, err := Load(path)
	require.NoError(t, err)

	b := packline.New()
	require.NoError(t, file.Apply(b))
	require.NoError(t, b.Validate())

	o := b.Options()
	require.Equal(t, []packline.EntryPoint{
		{Name: "admin", Path: "src/admin.tsx"},
		{Name: "app", Path: "src/app.tsx"},
	}, o.Entries)
	require.Equal(t, "public/build", o.OutDir)
	require.Equal(t, "/static", o.PublicPath)
	require.Equal(t, "es2020", o.Target)
	require.True(t, o.Minify)
	require.True(t, o.Versioned)
	require.True(t, o.Splitting)
	require.Equal(t, packline.SourcemapExternal, o.Sourcemap)
	require.Equal(t, packline.LoaderFile, o.Loaders[".svg"])
	require.Equal(t, packline.LoaderDataURL, o.Loaders[".png"])
	require.True(t, o.CSSModules)
	require.Equal(t, "false", o.Defines["__DEV__"])
	require.Equal(t, "APP_", o.EnvPrefix)
	require.Equal(t, "preact/compat", o.Aliases["react"])
	require.Equal(t, []string{"electron"}, o.Externals)

	require.Equal(t, "0.0.0.0", o.Dev.Host)
	require.Equal(t, 3000, o.Dev.Port)
	require.True(t, o.Dev.SPA)
	require.False(t, o.Dev.LiveReload)
	require.Equal(t, []string{"https://app.localhost"}, o.Dev.CORSOrigins)
	require.Equal(t, []packline.ProxyRule{{Prefix: "/api", Target: "http://localhost:9000"}}, o.Dev.Proxies)
	require.Equal(t, []string{"src"}, o.Dev.WatchDirs)
}

func TestApplyLeavesDefaultsAlone(t *testing.T) {
	path := writeConfig(t, `
entries:
  app: src/app.ts
`)

	file, err := Load(path)
	require.NoError(t, err)

	b := packline.New()
	require.NoError(t, file.Apply(b))

	o := b.Options()
	require.Equal(t, "dist", o.OutDir)
	require.Equal(t, "esnext", o.Target)
	require.True(t, o.TreeShaking)
	require.True(t, o.Dev.LiveReload)
	require.Equal(t, 8000, o.Dev.Port)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
entries:
  app: src/app.ts
out_dirs: typo
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestApplyRejectsBadEnums(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad format", yaml: "format: umd"},
		{name: "bad sourcemap", yaml: "sourcemap: both"},
		{name: "bad loader", yaml: "loaders:\n  \".wasm\": wasm"},
		{name: "bad jsx", yaml: "jsx: classic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "entries:\n  app: src/app.ts\n"+tt.yaml+"\n")

			file, err := Load(path)
			require.NoError(t, err)
			require.Error(t, file.Apply(packline.New()))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PLTEST_FROM_DOTENV=yes\n"), 0600))

	require.NoError(t, LoadDotenv(path))
	require.Equal(t, "yes", os.Getenv("PLTEST_FROM_DOTENV"))
	t.Cleanup(func() { os.Unsetenv("PLTEST_FROM_DOTENV") })

	// A missing dotenv file is not an error.
	require.NoError(t, LoadDotenv(filepath.Join(dir, "nope.env")))
}

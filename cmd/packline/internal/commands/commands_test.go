package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/packline/packline"
)

func TestBuilderFromFlags(t *testing.T) {
	flags := BuildFlags{
		Config:     "packline.yaml",
		Entry:      []string{"app=src/app.ts", "src/pages/about.tsx"},
		OutDir:     "public",
		PublicPath: "/static",
		Minify:     true,
		Versioned:  true,
		Sourcemap:  "none",
		Target:     "es2020",
		Format:     "iife",
	}

	b, err := flags.builder()
	require.NoError(t, err)

	o := b.Options()
	require.Equal(t, []packline.EntryPoint{
		{Name: "app", Path: "src/app.ts"},
		{Name: "about", Path: "src/pages/about.tsx"},
	}, o.Entries)
	require.Equal(t, "public", o.OutDir)
	require.Equal(t, "/static", o.PublicPath)
	require.True(t, o.Minify)
	require.True(t, o.Versioned)
	require.Equal(t, packline.SourcemapNone, o.Sourcemap)
	require.Equal(t, "es2020", o.Target)
	require.Equal(t, packline.FormatIIFE, o.Format)
}

func TestFlagsWinOverConfigFile(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "packline.yaml")
	require.NoError(t, os.WriteFile(config, []byte(`
entries:
  app: src/app.ts
out_dir: from-file
target: es2015
`), 0600))

	flags := BuildFlags{
		Config: config,
		OutDir: "from-flag",
	}

	b, err := flags.builder()
	require.NoError(t, err)

	o := b.Options()
	require.Equal(t, "from-flag", o.OutDir)
	require.Equal(t, "es2015", o.Target)
	require.Len(t, o.Entries, 1)
}

func TestExplicitConfigMustExist(t *testing.T) {
	flags := BuildFlags{Config: filepath.Join(t.TempDir(), "missing.yaml")}

	_, err := flags.builder()
	require.Error(t, err)
	require.Contains(t, err.Error(), "config file not found")
}

func TestDefaultConfigMayBeAbsent(t *testing.T) {
	t.Chdir(t.TempDir())

	flags := BuildFlags{Config: "packline.yaml", Entry: []string{"app=src/app.ts"}}

	b, err := flags.builder()
	require.NoError(t, err)
	require.Len(t, b.Options().Entries, 1)
}

func TestBadFlagEnums(t *testing.T) {
	tests := []struct {
		name  string
		flags BuildFlags
	}{
		{name: "bad sourcemap", flags: BuildFlags{Config: "packline.yaml", Sourcemap: "both"}},
		{name: "bad format", flags: BuildFlags{Config: "packline.yaml", Format: "umd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			_, err := tt.flags.builder()
			require.Error(t, err)
		})
	}
}

func TestWatchDirsFallBackToEntryDirs(t *testing.T) {
	o := packline.New().
		Entry("app", "src/app.ts").
		Entry("admin", "src/admin.ts").
		EntryGlob("pages/*.tsx").
		Options()

	require.Equal(t, []string{"src", "pages"}, watchDirs(o))
}

func TestWatchDirsPreferExplicit(t *testing.T) {
	o := packline.New().
		Entry("app", "src/app.ts").
		Dev().Watch("ui").Done().
		Options()

	require.Equal(t, []string{"ui"}, watchDirs(o))
}

func TestCLIErrorRendersValidation(t *testing.T) {
	err := packline.New().Validate()
	require.Error(t, err)

	rendered := cliError(err)
	require.Contains(t, rendered.Error(), "invalid configuration:")
	require.Contains(t, rendered.Error(), "at least one entry point is required")
}

// Package project loads packline.yaml and applies it onto a Builder.
// CLI flags are applied after the file, so flags win.
package project

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/packline/packline"
)

// File mirrors the packline.yaml schema. Pointer fields distinguish
// "absent" from zero so file values never stomp builder defaults.
type File struct {
	Entries    map[string]string `yaml:"entries"`
	EntryGlobs []string          `yaml:"entry_globs"`

	OutDir     string `yaml:"out_dir"`
	PublicPath string `yaml:"public_path"`
	AssetNames string `yaml:"asset_names"`

	Target   string `yaml:"target"`
	Format   string `yaml:"format"`
	Platform string `yaml:"platform"`

	Minify    *bool  `yaml:"minify"`
	Sourcemap string `yaml:"sourcemap"`
	Versioned *bool  `yaml:"versioned"`
	Splitting *bool  `yaml:"splitting"`

	Loaders         map[string]string `yaml:"loaders"`
	JSX             string            `yaml:"jsx"`
	JSXImportSource string            `yaml:"jsx_import_source"`
	CSSModules      *bool             `yaml:"css_modules"`

	Define    map[string]string `yaml:"define"`
	EnvPrefix string            `yaml:"env_prefix"`
	Alias     map[string]string `yaml:"alias"`
	External  []string          `yaml:"external"`
	Inject    []string          `yaml:"inject"`
	Tsconfig  string            `yaml:"tsconfig"`
	Banner    string            `yaml:"banner"`
	Footer    string            `yaml:"footer"`

	Dev DevFile `yaml:"dev"`
}

type DevFile struct {
	Host        string            `yaml:"host"`
	Port        int               `yaml:"port"`
	Open        *bool             `yaml:"open"`
	LiveReload  *bool             `yaml:"livereload"`
	Compress    *bool             `yaml:"compress"`
	SPA         *bool             `yaml:"spa"`
	CORSOrigins []string          `yaml:"cors_origins"`
	Proxy       map[string]string `yaml:"proxy"`
	Watch       []string          `yaml:"watch"`
}

// Load reads and decodes a config file. Unknown keys are rejected so a
// typo fails loudly instead of being silently ignored.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &f, nil
}

// LoadDotenv loads a .env file into the process environment when one
// exists, so env_prefix captures pick it up.
func LoadDotenv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Apply records the file's values onto the builder. Map keys are applied
// in sorted order for deterministic validation output.
func (f *File) Apply(b *packline.Builder) error {
	for _, name := range sortedKeys(f.Entries) {
		b.Entry(name, f.Entries[name])
	}
	for _, glob := range f.EntryGlobs {
		b.EntryGlob(glob)
	}

	if f.OutDir != "" {
		b.OutDir(f.OutDir)
	}
	if f.PublicPath != "" {
		b.PublicPath(f.PublicPath)
	}
	if f.AssetNames != "" {
		b.AssetNames(f.AssetNames)
	}
	if f.Target != "" {
		b.Target(f.Target)
	}

	if f.Format != "" {
		format, err := packline.ParseFormat(f.Format)
		if err != nil {
			return err
		}
		b.Format(format)
	}
	if f.Platform != "" {
		platform, err := packline.ParsePlatform(f.Platform)
		if err != nil {
			return err
		}
		b.Platform(platform)
	}
	if f.Sourcemap != "" {
		mode, err := packline.ParseSourcemapMode(f.Sourcemap)
		if err != nil {
			return err
		}
		b.Sourcemap(mode)
	}
	if f.JSX != "" {
		mode, err := packline.ParseJSXMode(f.JSX)
		if err != nil {
			return err
		}
		b.JSX(mode)
	}
	if f.JSXImportSource != "" {
		b.JSXImportSource(f.JSXImportSource)
	}

	if f.Minify != nil {
		b.Minify(*f.Minify)
	}
	if f.Versioned != nil {
		b.Versioned(*f.Versioned)
	}
	if f.Splitting != nil {
		b.Splitting(*f.Splitting)
	}
	if f.CSSModules != nil && *f.CSSModules {
		b.CSSModules()
	}

	for _, ext := range sortedKeys(f.Loaders) {
		kind, err := packline.ParseLoaderKind(f.Loaders[ext])
		if err != nil {
			return fmt.Errorf("loader for %s: %w", ext, err)
		}
		b.Loader(ext, kind)
	}

	for _, key := range sortedKeys(f.Define) {
		b.Define(key, f.Define[key])
	}
	if f.EnvPrefix != "" {
		b.EnvPrefix(f.EnvPrefix)
	}
	for _, from := range sortedKeys(f.Alias) {
		b.Alias(from, f.Alias[from])
	}
	for _, pkg := range f.External {
		b.External(pkg)
	}
	for _, path := range f.Inject {
		b.Inject(path)
	}
	if f.Tsconfig != "" {
		b.Tsconfig(f.Tsconfig)
	}
	if f.Banner != "" {
		b.Banner(f.Banner)
	}
	if f.Footer != "" {
		b.Footer(f.Footer)
	}

	f.applyDev(b.Dev())
	return nil
}

func (f *File) applyDev(d *packline.DevBuilder) {
	if f.Dev.Host != "" {
		d.Host(f.Dev.Host)
	}
	if f.Dev.Port != 0 {
		d.Port(f.Dev.Port)
	}
	if f.Dev.Open != nil {
		d.Open(*f.Dev.Open)
	}
	if f.Dev.LiveReload != nil {
		d.LiveReload(*f.Dev.LiveReload)
	}
	if f.Dev.Compress != nil {
		d.Compress(*f.Dev.Compress)
	}
	if f.Dev.SPA != nil {
		d.SPA(*f.Dev.SPA)
	}
	if len(f.Dev.CORSOrigins) > 0 {
		d.CORSOrigins(f.Dev.CORSOrigins...)
	}
	for _, prefix := range sortedKeys(f.Dev.Proxy) {
		d.Proxy(prefix, f.Dev.Proxy[prefix])
	}
	for _, dir := range f.Dev.Watch {
		d.Watch(dir)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

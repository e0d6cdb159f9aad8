package packline

import "fmt"

// Format selects the module format of the bundled output.
type Format int

const (
	FormatESM Format = iota
	FormatCommonJS
	FormatIIFE
)

func (f Format) String() string {
	switch f {
	case FormatCommonJS:
		return "cjs"
	case FormatIIFE:
		return "iife"
	default:
		return "esm"
	}
}

// ParseFormat maps a config-file string onto a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "esm":
		return FormatESM, nil
	case "cjs":
		return FormatCommonJS, nil
	case "iife":
		return FormatIIFE, nil
	}
	return FormatESM, fmt.Errorf("unknown format %q (esm, cjs or iife)", s)
}

// Platform selects the resolution environment.
type Platform int

const (
	PlatformBrowser Platform = iota
	PlatformNode
	PlatformNeutral
)

func (p Platform) String() string {
	switch p {
	case PlatformNode:
		return "node"
	case PlatformNeutral:
		return "neutral"
	default:
		return "browser"
	}
}

func ParsePlatform(s string) (Platform, error) {
	switch s {
	case "browser":
		return PlatformBrowser, nil
	case "node":
		return PlatformNode, nil
	case "neutral":
		return PlatformNeutral, nil
	}
	return PlatformBrowser, fmt.Errorf("unknown platform %q (browser, node or neutral)", s)
}

// SourcemapMode selects how source maps are emitted.
type SourcemapMode int

const (
	SourcemapLinked SourcemapMode = iota
	SourcemapNone
	SourcemapInline
	SourcemapExternal
)

func (m SourcemapMode) String() string {
	switch m {
	case SourcemapNone:
		return "none"
	case SourcemapInline:
		return "inline"
	case SourcemapExternal:
		return "external"
	default:
		return "linked"
	}
}

func ParseSourcemapMode(s string) (SourcemapMode, error) {
	switch s {
	case "linked":
		return SourcemapLinked, nil
	case "none":
		return SourcemapNone, nil
	case "inline":
		return SourcemapInline, nil
	case "external":
		return SourcemapExternal, nil
	}
	return SourcemapLinked, fmt.Errorf("unknown sourcemap mode %q (linked, none, inline or external)", s)
}

// JSXMode selects how JSX syntax is lowered.
type JSXMode int

const (
	JSXAutomatic JSXMode = iota
	JSXTransform
	JSXPreserve
)

func (m JSXMode) String() string {
	switch m {
	case JSXTransform:
		return "transform"
	case JSXPreserve:
		return "preserve"
	default:
		return "automatic"
	}
}

func ParseJSXMode(s string) (JSXMode, error) {
	switch s {
	case "automatic":
		return JSXAutomatic, nil
	case "transform":
		return JSXTransform, nil
	case "preserve":
		return JSXPreserve, nil
	}
	return JSXAutomatic, fmt.Errorf("unknown jsx mode %q (automatic, transform or preserve)", s)
}

// LoaderKind names the loader assigned to a file extension.
type LoaderKind int

const (
	LoaderJS LoaderKind = iota
	LoaderJSX
	LoaderTS
	LoaderTSX
	LoaderCSS
	LoaderLocalCSS
	LoaderJSON
	LoaderText
	LoaderBase64
	LoaderDataURL
	LoaderFile
	LoaderBinary
	LoaderCopy
	LoaderEmpty
)

var loaderNames = map[LoaderKind]string{
	LoaderJS:       "js",
	LoaderJSX:      "jsx",
	LoaderTS:       "ts",
	LoaderTSX:      "tsx",
	LoaderCSS:      "css",
	LoaderLocalCSS: "local-css",
	LoaderJSON:     "json",
	LoaderText:     "text",
	LoaderBase64:   "base64",
	LoaderDataURL:  "dataurl",
	LoaderFile:     "file",
	LoaderBinary:   "binary",
	LoaderCopy:     "copy",
	LoaderEmpty:    "empty",
}

func (k LoaderKind) String() string {
	if s, ok := loaderNames[k]; ok {
		return s
	}
	return "js"
}

func ParseLoaderKind(s string) (LoaderKind, error) {
	for k, name := range loaderNames {
		if name == s {
			return k, nil
		}
	}
	return LoaderJS, fmt.Errorf("unknown loader %q", s)
}

// EntryPoint is a named bundle entry. The name becomes the output file
// base name, independent of where the source lives.
type EntryPoint struct {
	Name string
	Path string
}

// ProxyRule forwards dev-server requests under Prefix to Target.
type ProxyRule struct {
	Prefix string
	Target string
}

// DevOptions holds the recorded dev-server settings.
type DevOptions struct {
	Host        string
	Port        int
	Open        bool
	LiveReload  bool
	Compress    bool
	SPA         bool
	CORSOrigins []string
	Proxies     []ProxyRule
	WatchDirs   []string
}

// Options is the state object the fluent setters write to. It records
// what the caller asked for verbatim; consistency is checked by Validate
// and the projection into esbuild's schema happens in Generate.
type Options struct {
	Entries    []EntryPoint
	EntryGlobs []string

	OutDir     string
	PublicPath string
	AssetNames string

	Loaders         map[string]LoaderKind
	JSX             JSXMode
	JSXImportSource string
	CSSModules      bool

	Target   string
	Format   Format
	Platform Platform

	Versioned   bool
	Minify      bool
	Sourcemap   SourcemapMode
	Splitting   bool
	TreeShaking bool

	Defines   map[string]string
	EnvPrefix string
	Aliases   map[string]string
	Externals []string
	Injects   []string
	Tsconfig  string
	Banner    string
	Footer    string

	Dev DevOptions
}

// DefaultOptions returns the state a fresh Builder starts from.
func DefaultOptions() Options {
	return Options{
		OutDir:      "dist",
		Target:      "esnext",
		Format:      FormatESM,
		Platform:    PlatformBrowser,
		Sourcemap:   SourcemapLinked,
		TreeShaking: true,
		Dev: DevOptions{
			Host:       "127.0.0.1",
			Port:       8000,
			LiveReload: true,
		},
	}
}

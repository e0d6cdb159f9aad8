package packline

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var targets = map[string]api.Target{
	"default": api.DefaultTarget,
	"esnext":  api.ESNext,
	"es5":     api.ES5,
	"es2015":  api.ES2015,
	"es2016":  api.ES2016,
	"es2017":  api.ES2017,
	"es2018":  api.ES2018,
	"es2019":  api.ES2019,
	"es2020":  api.ES2020,
	"es2021":  api.ES2021,
	"es2022":  api.ES2022,
	"es2023":  api.ES2023,
	"es2024":  api.ES2024,
}

var loaderKinds = map[LoaderKind]api.Loader{
	LoaderJS:       api.LoaderJS,
	LoaderJSX:      api.LoaderJSX,
	LoaderTS:       api.LoaderTS,
	LoaderTSX:      api.LoaderTSX,
	LoaderCSS:      api.LoaderCSS,
	LoaderLocalCSS: api.LoaderLocalCSS,
	LoaderJSON:     api.LoaderJSON,
	LoaderText:     api.LoaderText,
	LoaderBase64:   api.LoaderBase64,
	LoaderDataURL:  api.LoaderDataURL,
	LoaderFile:     api.LoaderFile,
	LoaderBinary:   api.LoaderBinary,
	LoaderCopy:     api.LoaderCopy,
	LoaderEmpty:    api.LoaderEmpty,
}

// Generate validates the recorded options and projects them into
// esbuild's schema. It is a pure translation: globs are expanded and the
// environment is read, but no build runs.
func (b *Builder) Generate() (api.BuildOptions, error) {
	if err := b.Validate(); err != nil {
		return api.BuildOptions{}, err
	}
	o := b.opts

	entries := make([]api.EntryPoint, 0, len(o.Entries))
	for _, e := range o.Entries {
		entries = append(entries, api.EntryPoint{InputPath: e.Path, OutputPath: e.Name})
	}

	globbed, err := expandGlobs(o.EntryGlobs)
	if err != nil {
		return api.BuildOptions{}, err
	}
	if len(entries) == 0 && len(globbed) == 0 {
		return api.BuildOptions{}, fmt.Errorf("no entry points matched %s", strings.Join(o.EntryGlobs, ", "))
	}

	opts := api.BuildOptions{
		EntryPointsAdvanced: entries,
		EntryPoints:         globbed,
		Outdir:              o.OutDir,
		Bundle:              true,
		Write:               true,
		Metafile:            true,
		LogLevel:            api.LogLevelSilent,
		Format:              formatOf(o.Format),
		Platform:            platformOf(o.Platform),
		Target:              targets[o.Target],
		Splitting:           o.Splitting,
		MinifyWhitespace:    o.Minify,
		MinifyIdentifiers:   o.Minify,
		MinifySyntax:        o.Minify,
		Sourcemap:           sourcemapOf(o.Sourcemap),
		External:            append([]string(nil), o.Externals...),
		Inject:              append([]string(nil), o.Injects...),
		Tsconfig:            o.Tsconfig,
		JSXImportSource:     o.JSXImportSource,
	}

	if o.TreeShaking {
		opts.TreeShaking = api.TreeShakingTrue
	} else {
		opts.TreeShaking = api.TreeShakingFalse
	}

	switch o.JSX {
	case JSXTransform:
		opts.JSX = api.JSXTransform
	case JSXPreserve:
		opts.JSX = api.JSXPreserve
	default:
		opts.JSX = api.JSXAutomatic
	}

	if o.PublicPath != "" {
		opts.PublicPath = o.PublicPath
		if !strings.HasSuffix(opts.PublicPath, "/") {
			opts.PublicPath += "/"
		}
	}

	if o.Versioned {
		opts.EntryNames = "[dir]/[name]-[hash]"
		opts.ChunkNames = "chunks/[name]-[hash]"
		opts.AssetNames = "assets/[name]-[hash]"
	} else {
		opts.ChunkNames = "chunks/[name]"
		opts.AssetNames = "assets/[name]"
	}
	if o.AssetNames != "" {
		opts.AssetNames = o.AssetNames
	}

	if len(o.Loaders) > 0 || o.CSSModules {
		opts.Loader = map[string]api.Loader{}
		if o.CSSModules {
			opts.Loader[".css"] = api.LoaderLocalCSS
		}
		for ext, kind := range o.Loaders {
			opts.Loader[ext] = loaderKinds[kind]
		}
	}

	defines := envDefines(o.EnvPrefix)
	for k, v := range o.Defines {
		defines[k] = v
	}
	if len(defines) > 0 {
		opts.Define = defines
	}

	if len(o.Aliases) > 0 {
		opts.Alias = copyMap(o.Aliases)
	}
	if o.Banner != "" {
		opts.Banner = map[string]string{"js": o.Banner}
	}
	if o.Footer != "" {
		opts.Footer = map[string]string{"js": o.Footer}
	}

	return opts, nil
}

func expandGlobs(patterns []string) ([]string, error) {
	var matched []string
	for _, pattern := range patterns {
		paths, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad entry glob %q: %w", pattern, err)
		}
		matched = append(matched, paths...)
	}
	return matched, nil
}

// envDefines captures prefixed environment variables as process.env
// defines. Values are quoted so they splice in as string literals.
func envDefines(prefix string) map[string]string {
	defines := map[string]string{}
	if prefix == "" {
		return defines
	}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		defines["process.env."+name] = strconv.Quote(value)
	}
	return defines
}

func formatOf(f Format) api.Format {
	switch f {
	case FormatCommonJS:
		return api.FormatCommonJS
	case FormatIIFE:
		return api.FormatIIFE
	default:
		return api.FormatESModule
	}
}

func platformOf(p Platform) api.Platform {
	switch p {
	case PlatformNode:
		return api.PlatformNode
	case PlatformNeutral:
		return api.PlatformNeutral
	default:
		return api.PlatformBrowser
	}
}

func sourcemapOf(m SourcemapMode) api.SourceMap {
	switch m {
	case SourcemapNone:
		return api.SourceMapNone
	case SourcemapInline:
		return api.SourceMapInline
	case SourcemapExternal:
		return api.SourceMapExternal
	default:
		return api.SourceMapLinked
	}
}

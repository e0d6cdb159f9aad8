package packline

// Builder accumulates build options through chained setters. Setters only
// record; they never fail. Call Validate to check consistency or Generate
// to project the state into esbuild's schema.
type Builder struct {
	opts Options
}

// New returns a Builder seeded with DefaultOptions.
func New() *Builder {
	return &Builder{opts: DefaultOptions()}
}

// Options returns a copy of the recorded state.
func (b *Builder) Options() Options {
	o := b.opts
	o.Entries = append([]EntryPoint(nil), b.opts.Entries...)
	o.EntryGlobs = append([]string(nil), b.opts.EntryGlobs...)
	o.Externals = append([]string(nil), b.opts.Externals...)
	o.Injects = append([]string(nil), b.opts.Injects...)
	o.Loaders = copyMap(b.opts.Loaders)
	o.Defines = copyMap(b.opts.Defines)
	o.Aliases = copyMap(b.opts.Aliases)
	o.Dev.CORSOrigins = append([]string(nil), b.opts.Dev.CORSOrigins...)
	o.Dev.Proxies = append([]ProxyRule(nil), b.opts.Dev.Proxies...)
	o.Dev.WatchDirs = append([]string(nil), b.opts.Dev.WatchDirs...)
	return o
}

// Entry records a named entry point. Duplicate names are recorded as-is
// and rejected by Validate so the caller gets a diagnostic instead of a
// silent merge.
func (b *Builder) Entry(name, path string) *Builder {
	b.opts.Entries = append(b.opts.Entries, EntryPoint{Name: name, Path: path})
	return b
}

// EntryGlob records a glob pattern expanded against the filesystem at
// generation time.
func (b *Builder) EntryGlob(pattern string) *Builder {
	b.opts.EntryGlobs = append(b.opts.EntryGlobs, pattern)
	return b
}

func (b *Builder) OutDir(dir string) *Builder {
	b.opts.OutDir = dir
	return b
}

// PublicPath records the URL prefix built assets are served under. It
// must be rooted ("/assets") or an absolute http(s) URL; Validate
// enforces the prefix, Generate normalizes the trailing slash.
func (b *Builder) PublicPath(prefix string) *Builder {
	b.opts.PublicPath = prefix
	return b
}

// AssetNames overrides the output name pattern for loaded assets
// (esbuild placeholders: [dir], [name], [hash]).
func (b *Builder) AssetNames(pattern string) *Builder {
	b.opts.AssetNames = pattern
	return b
}

// Loader assigns a loader to a file extension, e.g. Loader(".svg", LoaderFile).
func (b *Builder) Loader(ext string, kind LoaderKind) *Builder {
	if b.opts.Loaders == nil {
		b.opts.Loaders = map[string]LoaderKind{}
	}
	b.opts.Loaders[ext] = kind
	return b
}

func (b *Builder) JSX(mode JSXMode) *Builder {
	b.opts.JSX = mode
	return b
}

func (b *Builder) JSXImportSource(pkg string) *Builder {
	b.opts.JSXImportSource = pkg
	return b
}

// CSSModules scopes .css files as local CSS modules.
func (b *Builder) CSSModules() *Builder {
	b.opts.CSSModules = true
	return b
}

func (b *Builder) Target(target string) *Builder {
	b.opts.Target = target
	return b
}

func (b *Builder) Format(format Format) *Builder {
	b.opts.Format = format
	return b
}

func (b *Builder) Platform(platform Platform) *Builder {
	b.opts.Platform = platform
	return b
}

// Versioned toggles content-hashed output file names.
func (b *Builder) Versioned(on bool) *Builder {
	b.opts.Versioned = on
	return b
}

func (b *Builder) Minify(on bool) *Builder {
	b.opts.Minify = on
	return b
}

func (b *Builder) Sourcemap(mode SourcemapMode) *Builder {
	b.opts.Sourcemap = mode
	return b
}

// Splitting enables shared-chunk code splitting. Requires ESM format.
func (b *Builder) Splitting(on bool) *Builder {
	b.opts.Splitting = on
	return b
}

func (b *Builder) TreeShaking(on bool) *Builder {
	b.opts.TreeShaking = on
	return b
}

// Define records a compile-time constant substitution. The value is
// spliced in as an expression, so string values need their own quotes.
func (b *Builder) Define(key, value string) *Builder {
	if b.opts.Defines == nil {
		b.opts.Defines = map[string]string{}
	}
	b.opts.Defines[key] = value
	return b
}

// EnvPrefix exposes process environment variables with the given prefix
// as process.env.* defines. Values are quoted at generation time.
func (b *Builder) EnvPrefix(prefix string) *Builder {
	b.opts.EnvPrefix = prefix
	return b
}

func (b *Builder) Alias(from, to string) *Builder {
	if b.opts.Aliases == nil {
		b.opts.Aliases = map[string]string{}
	}
	b.opts.Aliases[from] = to
	return b
}

// External marks a package as resolved at runtime instead of bundled.
func (b *Builder) External(pkg string) *Builder {
	b.opts.Externals = append(b.opts.Externals, pkg)
	return b
}

func (b *Builder) Inject(path string) *Builder {
	b.opts.Injects = append(b.opts.Injects, path)
	return b
}

func (b *Builder) Tsconfig(path string) *Builder {
	b.opts.Tsconfig = path
	return b
}

func (b *Builder) Banner(content string) *Builder {
	b.opts.Banner = content
	return b
}

func (b *Builder) Footer(content string) *Builder {
	b.opts.Footer = content
	return b
}

// Dev opens the dev-server section of the builder.
func (b *Builder) Dev() *DevBuilder {
	return &DevBuilder{b: b}
}

// DevBuilder records dev-server settings in the same fluent style.
// Done returns to the parent Builder.
type DevBuilder struct {
	b *Builder
}

func (d *DevBuilder) Host(host string) *DevBuilder {
	d.b.opts.Dev.Host = host
	return d
}

func (d *DevBuilder) Port(port int) *DevBuilder {
	d.b.opts.Dev.Port = port
	return d
}

// Open launches the default browser once the server is listening.
func (d *DevBuilder) Open(on bool) *DevBuilder {
	d.b.opts.Dev.Open = on
	return d
}

func (d *DevBuilder) LiveReload(on bool) *DevBuilder {
	d.b.opts.Dev.LiveReload = on
	return d
}

// Compress serves responses gzip-compressed.
func (d *DevBuilder) Compress(on bool) *DevBuilder {
	d.b.opts.Dev.Compress = on
	return d
}

// SPA rewrites unknown HTML navigations to the index page.
func (d *DevBuilder) SPA(on bool) *DevBuilder {
	d.b.opts.Dev.SPA = on
	return d
}

func (d *DevBuilder) CORSOrigins(origins ...string) *DevBuilder {
	d.b.opts.Dev.CORSOrigins = append(d.b.opts.Dev.CORSOrigins, origins...)
	return d
}

// Proxy forwards requests under prefix to an upstream target URL.
func (d *DevBuilder) Proxy(prefix, target string) *DevBuilder {
	d.b.opts.Dev.Proxies = append(d.b.opts.Dev.Proxies, ProxyRule{Prefix: prefix, Target: target})
	return d
}

// Watch adds a directory rebuilt on change. Defaults to the entry point
// directories when none are recorded.
func (d *DevBuilder) Watch(dir string) *DevBuilder {
	d.b.opts.Dev.WatchDirs = append(d.b.opts.Dev.WatchDirs, dir)
	return d
}

func (d *DevBuilder) Done() *Builder {
	return d.b
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

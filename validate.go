package packline

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Issue is a single option-consistency problem found by Validate.
type Issue struct {
	Field   string
	Message string
}

// ValidationError aggregates every issue found in one pass so the CLI can
// render them as a block instead of surfacing one failure at a time.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("invalid configuration: %s: %s", e.Issues[0].Field, e.Issues[0].Message)
	}
	return fmt.Sprintf("invalid configuration: %d issues", len(e.Issues))
}

var defineKeyRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// Validate checks the recorded options for consistency. It returns a
// *ValidationError listing every problem, or nil.
func (b *Builder) Validate() error {
	o := b.opts
	var issues []Issue

	add := func(field, format string, args ...any) {
		issues = append(issues, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(o.Entries) == 0 && len(o.EntryGlobs) == 0 {
		add("entries", "at least one entry point is required")
	}
	seen := map[string]bool{}
	for _, e := range o.Entries {
		switch {
		case e.Name == "":
			add("entries", "entry name must not be empty")
		case seen[e.Name]:
			add("entries", "duplicate entry name %q", e.Name)
		default:
			seen[e.Name] = true
		}
		if e.Path == "" {
			add("entries", "entry %q has an empty path", e.Name)
		}
	}
	for _, g := range o.EntryGlobs {
		if g == "" {
			add("entries", "entry glob must not be empty")
		}
	}

	switch {
	case o.OutDir == "":
		add("out_dir", "output directory is required")
	case path.Clean(o.OutDir) == "/":
		add("out_dir", "output directory must not be the filesystem root")
	}

	if o.PublicPath != "" && !validPublicPath(o.PublicPath) {
		add("public_path", "%q must start with \"/\" or be an absolute http(s) URL", o.PublicPath)
	}

	if o.Splitting && o.Format != FormatESM {
		add("splitting", "code splitting requires the esm output format, not %s", o.Format)
	}

	if _, ok := targets[o.Target]; !ok {
		add("target", "unknown target %q", o.Target)
	}

	for ext := range o.Loaders {
		if !strings.HasPrefix(ext, ".") {
			add("loaders", "loader extension %q must start with \".\"", ext)
		}
	}

	for key := range o.Defines {
		if !defineKeyRe.MatchString(key) {
			add("define", "%q is not a valid identifier path", key)
		}
	}
	for from, to := range o.Aliases {
		if from == "" || to == "" {
			add("alias", "alias names must not be empty")
		}
	}
	for _, ext := range o.Externals {
		if ext == "" {
			add("external", "external package name must not be empty")
		}
	}

	issues = append(issues, validateDev(o.Dev)...)

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func validateDev(d DevOptions) []Issue {
	var issues []Issue
	add := func(field, format string, args ...any) {
		issues = append(issues, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if d.Port < 1 || d.Port > 65535 {
		add("dev.port", "port %d is outside 1-65535", d.Port)
	}
	for _, p := range d.Proxies {
		if !strings.HasPrefix(p.Prefix, "/") {
			add("dev.proxy", "prefix %q must start with \"/\"", p.Prefix)
		}
		u, err := url.Parse(p.Target)
		if err != nil || !u.IsAbs() || u.Host == "" {
			add("dev.proxy", "target %q must be an absolute URL", p.Target)
		}
	}
	for _, dir := range d.WatchDirs {
		if dir == "" {
			add("dev.watch", "watch directory must not be empty")
		}
	}
	return issues
}

func validPublicPath(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/packline/packline"
	"github.com/packline/packline/internal/project"
)

type Globals struct {
	Debug   bool
	Version string
}

// BuildFlags are shared by every command that needs a configured builder.
// File values are applied first, then flags, so flags win.
type BuildFlags struct {
	Config string `help:"path to the project config file" default:"packline.yaml" env:"PACKLINE_CONFIG"`
	Dotenv string `help:"dotenv file loaded before environment capture" default:".env" env:"PACKLINE_DOTENV"`

	Entry      []string `help:"entry point as name=path (repeatable)" placeholder:"name=path"`
	OutDir     string   `help:"output directory" env:"PACKLINE_OUT_DIR"`
	PublicPath string   `help:"public URL prefix for built assets" env:"PACKLINE_PUBLIC_PATH"`

	Minify    bool   `help:"minify output"`
	Versioned bool   `help:"content-hash output file names"`
	Splitting bool   `help:"enable shared-chunk code splitting"`
	Sourcemap string `help:"sourcemap mode (linked, none, inline or external)"`
	Target    string `help:"output target, e.g. es2020"`
	Format    string `help:"output format (esm, cjs or iife)"`
	EnvPrefix string `help:"expose prefixed environment variables as defines"`
}

// builder loads the config file (when present) and layers the flag
// values on top.
func (f *BuildFlags) builder() (*packline.Builder, error) {
	b := packline.New()

	if _, err := os.Stat(f.Config); err == nil {
		file, err := project.Load(f.Config)
		if err != nil {
			return nil, err
		}
		if err := file.Apply(b); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", f.Config, err)
		}
	} else if f.Config != "packline.yaml" {
		// An explicitly named config file has to exist.
		return nil, fmt.Errorf("config file not found: %s", f.Config)
	}

	if err := project.LoadDotenv(f.Dotenv); err != nil {
		return nil, err
	}

	for _, spec := range f.Entry {
		name, path, ok := strings.Cut(spec, "=")
		if !ok {
			path = spec
			name = strings.TrimSuffix(filepath.Base(spec), filepath.Ext(spec))
		}
		b.Entry(name, path)
	}

	if f.OutDir != "" {
		b.OutDir(f.OutDir)
	}
	if f.PublicPath != "" {
		b.PublicPath(f.PublicPath)
	}
	if f.Minify {
		b.Minify(true)
	}
	if f.Versioned {
		b.Versioned(true)
	}
	if f.Splitting {
		b.Splitting(true)
	}
	if f.Sourcemap != "" {
		mode, err := packline.ParseSourcemapMode(f.Sourcemap)
		if err != nil {
			return nil, err
		}
		b.Sourcemap(mode)
	}
	if f.Target != "" {
		b.Target(f.Target)
	}
	if f.Format != "" {
		format, err := packline.ParseFormat(f.Format)
		if err != nil {
			return nil, err
		}
		b.Format(format)
	}
	if f.EnvPrefix != "" {
		b.EnvPrefix(f.EnvPrefix)
	}

	return b, nil
}

// cliError renders validation and build failures for the terminal and
// hands the result to kong as the fatal message.
func cliError(err error) error {
	return errors.New(strings.TrimRight(packline.FormatError(err, useColor()), "\n"))
}

func useColor() bool {
	return isatty.IsTerminal(os.Stderr.Fd())
}

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/packline/packline"
	"github.com/packline/packline/internal/devserver"
	"github.com/packline/packline/internal/logger"
)

type ServeCmd struct {
	BuildFlags `embed:""`

	Host         string   `help:"dev server bind address" env:"PACKLINE_HOST"`
	Port         int      `help:"dev server port" env:"PACKLINE_PORT"`
	Open         bool     `help:"open the browser once listening"`
	NoLiveReload bool     `help:"disable live reload"`
	Compress     bool     `help:"serve gzip-compressed responses"`
	SPA          bool     `help:"rewrite unknown HTML navigations to the index page"`
	CORSOrigins  []string `help:"allowed CORS origins" env:"PACKLINE_CORS_ORIGINS"`
	Proxy        []string `help:"proxy rule as prefix=target (repeatable)" placeholder:"prefix=target"`
	Watch        []string `help:"directory to watch (defaults to entry point directories)"`
	Debounce     int      `help:"rebuild debounce in milliseconds" default:"200"`
}

func (c *ServeCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)

	b, err := c.builder()
	if err != nil {
		return err
	}
	if err := c.applyDevFlags(b); err != nil {
		return err
	}

	opts, err := b.Generate()
	if err != nil {
		return cliError(err)
	}

	buildCtx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return cliError(&packline.BuildError{Errors: ctxErr.Errors})
	}
	defer buildCtx.Dispose()

	o := b.Options()
	rebuild := func() error {
		result := buildCtx.Rebuild()
		if len(result.Errors) > 0 {
			return &packline.BuildError{Errors: result.Errors, Warnings: result.Warnings}
		}
		printWarnings(result.Warnings)
		if _, err := writeManifest(result.Metafile, o); err != nil {
			return err
		}
		return nil
	}

	// The first build failing should not keep the server from starting;
	// the next save gets another chance.
	if err := rebuild(); err != nil {
		fmt.Fprint(os.Stderr, packline.FormatError(err, useColor()))
	}

	srv := devserver.New(devserver.Config{
		Host:        o.Dev.Host,
		Port:        o.Dev.Port,
		OutDir:      o.OutDir,
		PublicPath:  o.PublicPath,
		SPA:         o.Dev.SPA,
		Compress:    o.Dev.Compress,
		Open:        o.Dev.Open,
		LiveReload:  o.Dev.LiveReload,
		CORSOrigins: o.Dev.CORSOrigins,
		Proxies:     o.Dev.Proxies,
		WatchDirs:   watchDirs(o),
		Debounce:    time.Duration(c.Debounce) * time.Millisecond,
	}, rebuild, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

func (c *ServeCmd) applyDevFlags(b *packline.Builder) error {
	d := b.Dev()
	if c.Host != "" {
		d.Host(c.Host)
	}
	if c.Port != 0 {
		d.Port(c.Port)
	}
	if c.Open {
		d.Open(true)
	}
	if c.NoLiveReload {
		d.LiveReload(false)
	}
	if c.Compress {
		d.Compress(true)
	}
	if c.SPA {
		d.SPA(true)
	}
	if len(c.CORSOrigins) > 0 {
		d.CORSOrigins(c.CORSOrigins...)
	}
	for _, spec := range c.Proxy {
		prefix, target, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("bad proxy rule %q, expected prefix=target", spec)
		}
		d.Proxy(prefix, target)
	}
	for _, dir := range c.Watch {
		d.Watch(dir)
	}
	return nil
}

// watchDirs falls back to the directories holding the entry points when
// nothing was configured explicitly.
func watchDirs(o packline.Options) []string {
	if len(o.Dev.WatchDirs) > 0 {
		return o.Dev.WatchDirs
	}

	seen := map[string]bool{}
	var dirs []string
	add := func(dir string) {
		if strings.ContainsAny(dir, "*?[") {
			dir = "."
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, e := range o.Entries {
		add(filepath.Dir(e.Path))
	}
	for _, g := range o.EntryGlobs {
		add(filepath.Dir(g))
	}
	return dirs
}

package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/packline/packline"
	"github.com/packline/packline/internal/logger"
	"github.com/packline/packline/internal/manifest"
)

type BuildCmd struct {
	BuildFlags `embed:""`
}

func (c *BuildCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)

	b, err := c.builder()
	if err != nil {
		return err
	}

	log.Info().Str("version", globals.Version).Msg("Building")

	artifact, err := b.Build()
	if err != nil {
		return cliError(err)
	}
	printWarnings(artifact.Warnings)

	m, err := writeManifest(artifact.Metafile, b.Options())
	if err != nil {
		return err
	}

	for _, path := range m.Sorted() {
		asset := m.Assets[path]
		log.Info().
			Str("file", path).
			Str("version", asset.Version).
			Int64("bytes", asset.Bytes).
			Msg("Built file")
	}
	log.Info().Int("entries", len(m.Entries)).Str("build_id", m.BuildID).Msg("Build complete")
	return nil
}

// writeManifest resolves the metafile into a manifest and stores it next
// to the build output.
func writeManifest(metafile string, opts packline.Options) (*manifest.Manifest, error) {
	meta, err := manifest.ParseMetafile(metafile)
	if err != nil {
		return nil, err
	}

	m, err := manifest.Build(meta, opts.OutDir, opts.PublicPath)
	if err != nil {
		return nil, err
	}

	if err := m.Write(filepath.Join(opts.OutDir, "manifest.json")); err != nil {
		return nil, err
	}
	return m, nil
}

func printWarnings(warnings []api.Message) {
	if len(warnings) == 0 {
		return
	}
	for _, line := range api.FormatMessages(warnings, api.FormatMessagesOptions{
		Kind:  api.WarningMessage,
		Color: useColor(),
	}) {
		fmt.Fprint(os.Stderr, line)
	}
}

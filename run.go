package packline

import (
	"github.com/evanw/esbuild/pkg/api"
)

// Artifact describes a completed build. Output files are written to disk
// by esbuild; their paths are recorded in the metafile.
type Artifact struct {
	// Metafile is esbuild's raw JSON metadata for the build.
	Metafile string
	// Warnings carries non-fatal build messages.
	Warnings []api.Message
}

// Build generates the configuration and runs esbuild with it. Failures
// come back as a *BuildError carrying the bundler's messages.
func (b *Builder) Build() (*Artifact, error) {
	opts, err := b.Generate()
	if err != nil {
		return nil, err
	}
	return Run(opts)
}

// Run executes an already-generated configuration.
func Run(opts api.BuildOptions) (*Artifact, error) {
	result := api.Build(opts)
	if len(result.Errors) > 0 {
		return nil, &BuildError{Errors: result.Errors, Warnings: result.Warnings}
	}

	return &Artifact{
		Metafile: result.Metafile,
		Warnings: result.Warnings,
	}, nil
}

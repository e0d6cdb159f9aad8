package commands

import (
	"encoding/json"
	"fmt"
	"os"
)

// ConfigCmd prints the bundler configuration the builder would hand to
// esbuild, for inspection and diffing.
type ConfigCmd struct {
	BuildFlags `embed:""`
}

func (c *ConfigCmd) Run(globals *Globals) error {
	b, err := c.builder()
	if err != nil {
		return err
	}

	opts, err := b.Generate()
	if err != nil {
		return cliError(err)
	}

	data, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

package manifest

import (
	"encoding/json"
	"fmt"
)

// Metafile is the subset of esbuild's build metadata the manifest needs.
type Metafile struct {
	Outputs map[string]Output `json:"outputs"`
}

type Output struct {
	EntryPoint string   `json:"entryPoint,omitempty"`
	Imports    []Import `json:"imports"`
	CSSBundle  string   `json:"cssBundle,omitempty"`
	Bytes      int64    `json:"bytes"`
}

type Import struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
}

// ParseMetafile decodes the raw metafile JSON produced by a build.
func ParseMetafile(raw string) (*Metafile, error) {
	var meta Metafile
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}
	return &meta, nil
}

// Package manifest turns an esbuild metafile into a stable description of
// a build: for each entry point the ordered scripts and styles a page
// needs, and for each output file a content version tag usable for cache
// busting when file names are not hashed.
package manifest

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
)

// Asset is one written output file.
type Asset struct {
	// URL is the public URL of the file.
	URL string `json:"url"`
	// Version is a base58-encoded CRC64-NVME checksum of the file content.
	Version string `json:"version"`
	Bytes   int64  `json:"bytes"`
}

// Entry lists what a page needs to load one entry point, scripts in
// dependency order.
type Entry struct {
	Scripts []string `json:"scripts"`
	Styles  []string `json:"styles,omitempty"`
}

type Manifest struct {
	BuildID     string    `json:"build_id"`
	GeneratedAt time.Time `json:"generated_at"`
	PublicPath  string    `json:"public_path"`
	// Entries is keyed by entry point source path.
	Entries map[string]Entry `json:"entries"`
	// Assets is keyed by output path relative to the output directory.
	Assets map[string]Asset `json:"assets"`
}

// Build resolves a metafile against the written output files. Output
// paths in the metafile are relative to the working directory; URLs are
// rewritten under publicPath.
func Build(meta *Metafile, outDir, publicPath string) (*Manifest, error) {
	if publicPath == "" {
		publicPath = "/"
	}
	if !strings.HasSuffix(publicPath, "/") {
		publicPath += "/"
	}

	m := &Manifest{
		BuildID:     uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		PublicPath:  publicPath,
		Entries:     map[string]Entry{},
		Assets:      map[string]Asset{},
	}

	for outPath, info := range meta.Outputs {
		version, err := contentVersion(outPath)
		if err != nil {
			return nil, err
		}
		m.Assets[relativeTo(outPath, outDir)] = Asset{
			URL:     publicPath + relativeTo(outPath, outDir),
			Version: version,
			Bytes:   info.Bytes,
		}
	}

	for outPath, info := range meta.Outputs {
		if info.EntryPoint == "" {
			continue
		}
		m.Entries[info.EntryPoint] = resolveEntry(meta, outPath, info, outDir, publicPath)
	}

	return m, nil
}

// resolveEntry walks the chunk import graph breadth-first from the entry
// output, collecting each chunk once in load order.
func resolveEntry(meta *Metafile, outPath string, info Output, outDir, publicPath string) Entry {
	entry := Entry{Scripts: []string{publicPath + relativeTo(outPath, outDir)}}
	visited := map[string]bool{outPath: true}

	if info.CSSBundle != "" {
		entry.Styles = append(entry.Styles, publicPath+relativeTo(info.CSSBundle, outDir))
	}

	addImports(meta, info, outDir, publicPath, &entry, visited)
	return entry
}

func addImports(meta *Metafile, output Output, outDir, publicPath string, entry *Entry, visited map[string]bool) {
	for _, imp := range output.Imports {
		if imp.External || visited[imp.Path] {
			continue
		}
		visited[imp.Path] = true

		url := publicPath + relativeTo(imp.Path, outDir)
		if strings.HasSuffix(imp.Path, ".css") {
			entry.Styles = append(entry.Styles, url)
		} else {
			entry.Scripts = append(entry.Scripts, url)
		}

		if chunk, ok := meta.Outputs[imp.Path]; ok {
			addImports(meta, chunk, outDir, publicPath, entry, visited)
		}
	}
}

// URL returns the versioned public URL for an output path, appending the
// content version as a query parameter. Hashed file names already carry
// their version, so the query is only useful for unhashed builds.
func (m *Manifest) URL(output string) (string, bool) {
	asset, ok := m.Assets[output]
	if !ok {
		return "", false
	}
	return asset.URL + "?v=" + asset.Version, true
}

// Sorted returns the asset output paths in lexical order.
func (m *Manifest) Sorted() []string {
	keys := make([]string, 0, len(m.Assets))
	for k := range m.Assets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Write stores the manifest as JSON at the given path.
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Load reads a manifest previously stored with Write.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

// contentVersion computes a CRC64-NVME checksum of the file and encodes
// it base58 for use in URLs.
func contentVersion(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read output %s: %w", path, err)
	}

	h := crc64nvme.New()
	h.Write(data)

	sum := make([]byte, 8)
	binary.BigEndian.PutUint64(sum, h.Sum64())
	return base58.Encode(sum), nil
}

func relativeTo(outPath, outDir string) string {
	return strings.TrimPrefix(path.Clean(outPath), path.Clean(outDir)+"/")
}

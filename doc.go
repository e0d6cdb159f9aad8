// Package packline is a fluent build-configuration builder for esbuild.
//
// A Builder records entry points, output settings, loader toggles,
// versioning and dev-server options through chained setters. Nothing is
// checked while recording; Validate reports every inconsistency at once,
// and Generate projects the recorded state into an api.BuildOptions value
// ready to hand to esbuild.
package packline

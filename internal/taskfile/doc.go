// Package taskfile loads task graphs from taskfiles on disk. Three formats
// are supported, selected by file extension: HCL (the primary format, with
// ambient environment variables exposed as env.* in expressions), YAML, and
// TOML. All formats decode into the same task model; the engine never knows
// which format a graph came from.
package taskfile

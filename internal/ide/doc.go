// Package ide provides Context, the lifecycle coordinator of an opened
// project.
//
// New brings a context up by running a fixed sequence of steps: resolve the
// build system and version control, start services, read the project name
// from DOAP metadata, load the navigation history, snippets and scripts,
// restore the unsaved-file index, record the project as recently used,
// build the search engine, load build configurations and finally tell the
// services the context is loaded. The build system may replace the project
// file used by every later step.
//
// Holds delay unloading. Unload waits for the hold count to drop to zero,
// then persists build configurations, the navigation history, modified
// buffers and unsaved files before stopping services. Failures during
// unload are logged and never stop it.
//
// Per-project state lives under the cache directory in
// projects/<project-id> and under the data directory in drafts/<project-id>.
package ide

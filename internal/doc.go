// Package internal contains the implementation packages of wikimark.
//
// # Package Organization
//
// The compiler pipeline, in the order a page flows through it:
//
//   - segmenter: splits page source into blocks and records block diagnostics
//   - params: template parameter parsing and card grid item decoding
//   - inline: inline markup parser with the emphasis state machine
//   - footnote: footnote numbering in first reference order
//   - toc: heading numbering and collision free anchors
//   - compiler: drives the stages above and produces a types.Document
//   - renderer: turns a types.Document into HTML, with code highlighted by highlight
//
// Around the pipeline:
//
//   - registry, scanner: the set of pages on disk and change events
//   - cache: rendered pages keyed by page name and content hash
//   - wiki: ties pages, compiler, renderer and cache together
//   - build: static site output with a worker pool
//   - watcher, websocket, server: the live preview server
//   - services: the use cases behind the CLI commands
//   - config, logging, errors, version: ambient concerns
//
// # Concurrency
//
// A compiled document is never mutated after Compile returns, so documents
// and rendered entries are shared freely between requests and build workers.
// Registry, cache and websocket manager guard their own state.
package internal

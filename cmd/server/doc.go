// Package main is the entry point for the filedesk server.
//
// filedesk serves a browser file manager confined to a single storage root:
// listing, folder creation, delete, move, upload, download and archive
// creation over a small JSON API.
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML or TOML file named by -config or CONFIG_FILE
//   - CLI flags (override both)
//
// Usage:
//
//	# Serve ./uploads on port 8000
//	./server
//
//	# Custom root and port
//	./server -root /srv/files -port 9000
//
//	# Development logging
//	LOG_DEV=true LOG_LEVEL=debug ./server -config filedesk.yaml
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main

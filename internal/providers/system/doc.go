// Package system reports runtime and storage capabilities for the
// diagnostics endpoint.
package system

// Package transfer moves file bytes between clients and the storage root.
//
// Downloads are opened through the resolver, typed from a static extension
// table and streamed in fixed-size chunks. Uploads are sanitized, stored with
// exclusive creation and collision suffixes, and reported per item so that a
// batch succeeds as long as one file lands.
package transfer

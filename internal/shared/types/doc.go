// Package types provides shared data structures for the filedesk service.
//
// Core Types:
//   - Kind, Error: the error taxonomy every operation reports through
//   - Request types: JSON bodies accepted by the HTTP endpoints
//
// Every failure that reaches the HTTP boundary is classified by Kind so that
// confinement violations stay distinguishable from ordinary I/O problems and
// from bugs.
//
// Example Usage:
//
//	if err != nil {
//	    return types.FromOS("list", rel, err)
//	}
//	switch types.KindOf(err) {
//	case types.KindOutsideRoot:
//	    ...
//	}
package types

// Package interfaces defines the identity types, error taxonomy and storage
// contracts shared by the provisioning pipeline and the monitor.
//
// # Identity Types
//
//   - AuthKey: 32-byte authentication key derived from an account public key
//   - AccountAddress: 16-byte on-chain account identifier (tail of the auth key)
//   - Waypoint: ledger checkpoint in "<version>:<hash>" form
//
// # Error Taxonomy
//
// Failures are classified with one of ErrConfig, ErrNetwork, ErrValidation,
// ErrFileSystem or ErrSigning through *Error, which also records the
// offending resource. The orchestrator wraps stage failures in *StageError.
//
//	if errors.Is(err, interfaces.ErrValidation) {
//	    var stageErr *interfaces.StageError
//	    if errors.As(err, &stageErr) {
//	        log.Error("bad document", "stage", stageErr.Stage, "resource", stageErr.Resource())
//	    }
//	}
//
// # Storage Interfaces
//
// Source: read access to named genesis material across backend types
// (file, S3, IPFS, GitHub, Vault).
//
// SourceFactory: creates sources from URI strings and aggregates several
// into a fallback chain.
package interfaces

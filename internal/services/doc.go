// Package services defines shared utilities consumed by the capture pipeline
// components.
//
// Key responsibilities:
//   - Context helpers that stamp unit and asset identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (extraction, resolution, download, tagging) without string
//     matching.
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform across components.
package services

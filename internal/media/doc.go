// Package media defines the catalog metadata sum type (Track, Movie, or nil
// for unresolved) and helpers for naming requested assets.
package media

// Package workflow runs the capture loop and the per-request pipeline.
//
// Manager pulls frames from a capture.Source and hands every matching request
// to its own goroutine, so a slow download never stalls the capture loop. Each
// unit resolves metadata, lays out its destination, downloads the asset (and
// cover art for tracks) and rewrites tags. Unit failures are logged, recorded
// in the history ledger and never reach the loop or other units.
//
// Stop ends the loop after the current frame wait; units already spawned run
// to completion. Wait blocks until they have.
package workflow

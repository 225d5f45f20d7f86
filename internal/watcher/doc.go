// Package watcher registers watch targets with fsnotify and turns the raw
// event stream into debounced batches.
//
// A batch is best effort: bursts of events are coalesced and a path shows up
// at most once per batch. Callers should treat a batch as a signal to rebuild
// rather than an exact change log.
package watcher

// Package walk turns compiled routes into watch targets by listing the
// directories each route can reach. Unreadable directories are skipped.
package walk

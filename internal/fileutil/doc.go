// Package fileutil provides atomic file writes for result documents and
// helper scripts.
package fileutil

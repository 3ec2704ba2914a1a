// Package modelcache manages the local model cache that makes offline runs
// possible: its directory layout, the environment that points the Python
// libraries at it, and the one-time locked download that fills it.
package modelcache

// Package util holds small arithmetic and logging helpers shared across
// the block allocator, size engine, and file I/O packages.
package util

import "log"

// Debug is the maximum DPrintf level that is actually logged. Tests that
// want a quiet run can lower it to 0.
var Debug uint64 = 1

// DPrintf logs through the standard logger when level is at or below Debug.
func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		log.Printf(format, a...)
	}
}

// RoundUp returns ceil(n/sz): the number of sz-sized units n spans.
func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

// Min returns the smaller of n and m.
func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	}
	return m
}

// SumOverflows reports whether n+m overflows a uint64.
func SumOverflows(n uint64, m uint64) bool {
	return n+m < n
}

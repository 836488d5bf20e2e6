//go:build !windows

package source

// LineSeparator terminates every line the Builder writes.
const LineSeparator = "\n"

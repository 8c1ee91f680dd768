// Package capture persists intercepted traffic so it can be attacked offline.
//
// A capture is an LZ4 frame stream of JSON lines: one Header followed by one
// Record per intercepted message, in the order the relay saw them.
package capture

// Package supervisor spawns named child processes, relays their output to
// the terminal line by line with a "[name]" prefix, and exposes an
// awaitable exit signal plus a graceful-then-forced Stop for each of them.
//
// Per-process line order is preserved. Lines from different processes
// interleave in whatever order the OS delivers them.
package supervisor

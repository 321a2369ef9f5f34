//go:build !windows

package main

// HandleServiceCommand is a no-op outside Windows; the daemon is expected
// to run under systemd or in the foreground. Returns false so main
// continues normally.
func HandleServiceCommand(args []string) bool {
	return false
}

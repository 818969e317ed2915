package main

import "os"

// Windows consoles have no resize signal; the next frame picks up the new size.
func resizeSignals() (<-chan os.Signal, func()) {
	return nil, func() {}
}

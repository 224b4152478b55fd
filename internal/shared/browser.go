package shared

import (
	"fmt"
	"io"

	"github.com/cli/browser"
)

func init() {
	// xdg-open and friends are chatty; keep their output off the console.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

var openURL = browser.OpenURL

// OpenBrowser opens the default system browser to the specified URL.
func OpenBrowser(url string) error {
	if err := openURL(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// Package notify wraps desktop notifications for export completion.
package notify

import "github.com/gen2brain/beeep"

// Send shows a desktop notification. Failures are returned for the
// caller to log; they never affect the operation being reported on.
func Send(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Package lifecycle holds process-wide shutdown settings.
package lifecycle

import "time"

// DefaultTimeout bounds how long a component may take to stop.
const DefaultTimeout = 10 * time.Second

// Package delivery contains the ways the application is exposed to its
// presentation layer.
package delivery

import "context"

// Delivery is a long-running front end started by the fx application.
type Delivery interface {
	Serve(ctx context.Context) error
}

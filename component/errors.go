package component

import "github.com/rotisserie/eris"

// ErrMissingRequiredComponent is raised when GetRequired is called on a raw
// that carries no value. This is a programmer invariant violation, not a
// recoverable error: required-presence components must hold a value for
// every live entity outside a creation tick.
var ErrMissingRequiredComponent = eris.New("component: required component missing for entity")

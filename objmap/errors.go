// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package objmap

import "errors"

// ErrInvalidID reports that an id names no live object: it was never
// allocated, has already been destroyed, or (when checked via a serial)
// refers to a slot since reused by a different object.
var ErrInvalidID = errors.New("objmap: invalid object id")

// ErrIDInUse reports that InsertAt was asked to place an object at an id
// that is already occupied.
var ErrIDInUse = errors.New("objmap: id already in use")

// ErrIDOutOfRange reports that an id was presented to the half of the map
// (client or server) that does not own its id range.
var ErrIDOutOfRange = errors.New("objmap: id out of range for this half of the map")

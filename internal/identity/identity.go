// Package identity derives the cross-node player key used to address
// presence entries and challenge mailboxes.
package identity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const separator = "_"

// pathSeparator splits store keys; a node id containing it would scatter one
// player's entries across several keys.
const pathSeparator = "."

var ErrInvalidNodeID = errors.New("invalid node id")

// ValidateNodeID rejects node ids that would not survive ComputeGlobalID and
// Parse, or that would split a store key.
func ValidateNodeID(nodeID string) error {
	switch {
	case nodeID == "":
		return fmt.Errorf("%w: empty", ErrInvalidNodeID)
	case strings.Contains(nodeID, separator):
		return fmt.Errorf("%w: %q contains %q", ErrInvalidNodeID, nodeID, separator)
	case strings.Contains(nodeID, pathSeparator):
		return fmt.Errorf("%w: %q contains %q", ErrInvalidNodeID, nodeID, pathSeparator)
	}
	return nil
}

// GlobalID has the form <nodeId>_<localUserNumber>.
type GlobalID string

type Parts struct {
	NodeID    string
	LocalUser int
}

func ComputeGlobalID(nodeID string, localUser int) GlobalID {
	return GlobalID(nodeID + separator + strconv.Itoa(localUser))
}

// Parse splits id into node and user number. It reports false for anything
// that ComputeGlobalID could not have produced.
func Parse(id GlobalID) (Parts, bool) {
	segs := strings.Split(string(id), separator)
	if len(segs) != 2 || segs[1] == "" || ValidateNodeID(segs[0]) != nil {
		return Parts{}, false
	}
	n, err := strconv.Atoi(segs[1])
	if err != nil || n < 0 {
		return Parts{}, false
	}
	if strconv.Itoa(n) != segs[1] {
		return Parts{}, false
	}
	return Parts{NodeID: segs[0], LocalUser: n}, true
}

func (id GlobalID) Valid() bool {
	_, ok := Parse(id)
	return ok
}

func (id GlobalID) String() string { return string(id) }

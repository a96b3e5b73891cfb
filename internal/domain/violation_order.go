package domain

import (
	"cmp"
	"strings"
)

// ViolationID identifies a violation inside one rule.
type ViolationID struct {
	BoundIndex int
	EntityName *string
}

// CompareViolationIDs orders violations by bound position, then by entity
// name. A nil entity name sorts before any other name.
func CompareViolationIDs(a, b ViolationID) int {
	if c := cmp.Compare(a.BoundIndex, b.BoundIndex); c != 0 {
		return c
	}
	switch {
	case a.EntityName == nil && b.EntityName == nil:
		return 0
	case a.EntityName == nil:
		return -1
	case b.EntityName == nil:
		return 1
	}
	return strings.Compare(*a.EntityName, *b.EntityName)
}

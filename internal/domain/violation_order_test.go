package domain

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestCompareViolationIDs(t *testing.T) {
	tests := []struct {
		name string
		a, b ViolationID
		want int
	}{
		{name: "bound index first", a: ViolationID{BoundIndex: 0, EntityName: strPtr("z")}, b: ViolationID{BoundIndex: 1, EntityName: strPtr("a")}, want: -1},
		{name: "nil before name", a: ViolationID{}, b: ViolationID{EntityName: strPtr("")}, want: -1},
		{name: "name after nil", a: ViolationID{EntityName: strPtr("a")}, b: ViolationID{}, want: 1},
		{name: "both nil", a: ViolationID{BoundIndex: 2}, b: ViolationID{BoundIndex: 2}, want: 0},
		{name: "lexicographic", a: ViolationID{EntityName: strPtr("com.a.B")}, b: ViolationID{EntityName: strPtr("com.a.A")}, want: 1},
		{name: "equal names", a: ViolationID{EntityName: strPtr("x")}, b: ViolationID{EntityName: strPtr("x")}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareViolationIDs(tt.a, tt.b))
			assert.Equal(t, -tt.want, CompareViolationIDs(tt.b, tt.a))
		})
	}
}

func TestCompareViolationIDsSorts(t *testing.T) {
	ids := []ViolationID{
		{BoundIndex: 1, EntityName: strPtr("b")},
		{BoundIndex: 0, EntityName: strPtr("b")},
		{BoundIndex: 1},
		{BoundIndex: 0, EntityName: strPtr("a")},
		{BoundIndex: 0},
	}
	slices.SortFunc(ids, CompareViolationIDs)

	got := make([]string, len(ids))
	for i, id := range ids {
		name := "<nil>"
		if id.EntityName != nil {
			name = *id.EntityName
		}
		got[i] = string(rune('0'+id.BoundIndex)) + ":" + name
	}
	assert.Equal(t, []string{"0:<nil>", "0:a", "0:b", "1:<nil>", "1:b"}, got)
}

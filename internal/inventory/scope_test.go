package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestScope_Unfiltered(t *testing.T) {
	s := AllHomes()
	assert.False(t, s.Filtered())
	assert.True(t, s.IncludesItem(Item{}))
	assert.True(t, s.IncludesLocation(Location{}))
	assert.True(t, s.IncludesHome(Home{ID: uuid.New()}))
	assert.True(t, s.IncludesPolicy(Policy{HomeIDs: []uuid.UUID{uuid.New()}}))

	assert.False(t, ScopeFor(nil).Filtered())
	assert.True(t, ScopeFor([]uuid.UUID{}).Filtered())
}

func TestScope_Items(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	s := ScopeFor([]uuid.UUID{a})

	tests := []struct {
		name string
		item Item
		want bool
	}{
		{"direct home matches", Item{Home: &Ref{ID: a}}, true},
		{"direct home differs", Item{Home: &Ref{ID: b}}, false},
		{"direct home wins over location home", Item{Home: &Ref{ID: b}, LocationHomeID: uuid.NullUUID{UUID: a, Valid: true}}, false},
		{"location home matches", Item{LocationHomeID: uuid.NullUUID{UUID: a, Valid: true}}, true},
		{"location home differs", Item{LocationHomeID: uuid.NullUUID{UUID: b, Valid: true}}, false},
		{"homeless", Item{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IncludesItem(tt.item))
		})
	}
}

func TestScope_LocationsHomesPolicies(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	s := ScopeFor([]uuid.UUID{a})

	assert.True(t, s.IncludesLocation(Location{Home: &Ref{ID: a}}))
	assert.False(t, s.IncludesLocation(Location{Home: &Ref{ID: b}}))
	assert.False(t, s.IncludesLocation(Location{}))

	assert.True(t, s.IncludesHome(Home{ID: a}))
	assert.False(t, s.IncludesHome(Home{ID: b}))

	assert.True(t, s.IncludesPolicy(Policy{}), "global policy")
	assert.True(t, s.IncludesPolicy(Policy{HomeIDs: []uuid.UUID{b, a}}))
	assert.False(t, s.IncludesPolicy(Policy{HomeIDs: []uuid.UUID{b}}))

	assert.True(t, s.IncludesLabel(Label{}))
	assert.Equal(t, []uuid.UUID{a}, s.HomeIDs())
}

package registry

import (
	"testing"

	"github.com/leapstack-labs/starfleet/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityRegistry_Register(t *testing.T) {
	r := NewEntityRegistry()
	ship := entities.NewStarship(entities.Sector{}, entities.WithName("a1"))

	require.NoError(t, r.Register(ship))
	assert.Equal(t, 1, r.Count())

	err := r.Register(entities.NewStarbase(entities.Sector{}, entities.WithName("a1")))
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Equal(t, 1, r.Count())
}

func TestEntityRegistry_Resolve(t *testing.T) {
	r := NewEntityRegistry()

	fleet := entities.NewFleet(entities.Player{Number: 2})
	ship := entities.NewStarship(entities.Sector{}, entities.WithName("b1"))
	base := entities.NewStarbase(entities.Sector{}, entities.WithName("beta"))
	fleet.AddEntities(ship, base)
	stray := entities.NewStarship(entities.Sector{}, entities.WithName("stray"))

	for _, e := range []entities.Entity{ship, base, stray} {
		require.NoError(t, r.Register(e))
	}

	tests := []struct {
		name      string
		ref       string
		want      entities.Entity
		wantFound bool
	}{
		{name: "exact name", ref: "b1", want: ship, wantFound: true},
		{name: "entity id", ref: base.ID(), want: base, wantFound: true},
		{name: "player qualified", ref: "2.b1", want: ship, wantFound: true},
		{name: "p-prefixed player qualified", ref: "p2.beta", want: base, wantFound: true},
		{name: "wrong player", ref: "1.b1", wantFound: false},
		{name: "unowned entity qualified", ref: "2.stray", wantFound: false},
		{name: "bad player number", ref: "x.b1", wantFound: false},
		{name: "unknown", ref: "nope", wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.ref)
			assert.Equal(t, tt.wantFound, ok)
			if tt.wantFound {
				assert.Same(t, tt.want, got)
			}
		})
	}
}

func TestEntityRegistry_TypedLookups(t *testing.T) {
	r := NewEntityRegistry()
	ship := entities.NewStarship(entities.Sector{}, entities.WithName("s"))
	base := entities.NewStarbase(entities.Sector{}, entities.WithName("b"))
	require.NoError(t, r.Register(ship))
	require.NoError(t, r.Register(base))

	gotShip, ok := r.Starship("s")
	require.True(t, ok)
	assert.Same(t, ship, gotShip)

	_, ok = r.Starship("b")
	assert.False(t, ok, "a starbase is not a starship")

	gotBase, ok := r.Starbase("b")
	require.True(t, ok)
	assert.Same(t, base, gotBase)

	_, ok = r.Starbase("missing")
	assert.False(t, ok)
}

func TestEntityRegistry_RegisterAllIsAtomic(t *testing.T) {
	r := NewEntityRegistry()
	require.NoError(t, r.Register(entities.NewStarship(entities.Sector{}, entities.WithName("taken"))))

	fresh := entities.NewStarship(entities.Sector{}, entities.WithName("fresh"))
	err := r.RegisterAll(fresh, entities.NewStarbase(entities.Sector{}, entities.WithName("taken")))
	assert.ErrorIs(t, err, ErrDuplicateName)
	_, ok := r.Resolve("fresh")
	assert.False(t, ok, "nothing is registered when one name clashes")

	err = r.RegisterAll(
		entities.NewStarship(entities.Sector{}, entities.WithName("twin")),
		entities.NewStarship(entities.Sector{}, entities.WithName("twin")),
	)
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.Equal(t, 1, r.Count())

	require.NoError(t, r.RegisterAll(fresh))
	assert.Equal(t, 2, r.Count())
}

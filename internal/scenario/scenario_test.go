package scenario

import (
	"testing"

	"github.com/leapstack-labs/starfleet/internal/entities"
	"github.com/leapstack-labs/starfleet/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCoords_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Coords
		wantErr bool
	}{
		{name: "flow sequence", input: "[3, 4]", want: Coords{X: 3, Y: 4}},
		{name: "mapping", input: "{x: -1, y: 2}", want: Coords{X: -1, Y: 2}},
		{name: "too many coordinates", input: "[1, 2, 3]", wantErr: true},
		{name: "scalar", input: "5", wantErr: true},
		{name: "not numbers", input: "[a, b]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Coords
			err := yaml.Unmarshal([]byte(tt.input), &c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c)
		})
	}
}

func TestCoords_MarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(EntitySpec{Name: "a", Sector: Coords{X: 1, Y: 2}})
	require.NoError(t, err)
	assert.Equal(t, "name: a\nsector: [1, 2]\n", string(out))
}

func TestOrderSpec_Order(t *testing.T) {
	sector := &Coords{X: 2, Y: 2}
	tests := []struct {
		name    string
		spec    OrderSpec
		want    game.Order
		wantErr string
	}{
		{
			name: "fleet move",
			spec: OrderSpec{Action: "move", Fleet: 1, Sector: sector},
			want: game.MoveFleet(1, entities.Sector{X: 2, Y: 2}),
		},
		{
			name: "action is case insensitive",
			spec: OrderSpec{Action: " Attack ", Actor: "a", Target: "b"},
			want: game.Attack("a", "b"),
		},
		{
			name: "attack all until destroyed",
			spec: OrderSpec{Action: "attack_all", Fleet: 1, Target: "base", Until: "destroyed", MaxVolleys: 5},
			want: game.Order{Action: game.ActionAttackWithAll, Fleet: 1, Target: "base", UntilDestroyed: true, MaxVolleys: 5},
		},
		{name: "unknown action", spec: OrderSpec{Action: "warp"}, wantErr: "unknown action"},
		{name: "move without sector", spec: OrderSpec{Action: "move", Actor: "a"}, wantErr: "requires sector"},
		{name: "move without mover", spec: OrderSpec{Action: "move", Sector: sector}, wantErr: "requires actor or fleet"},
		{name: "dock without base", spec: OrderSpec{Action: "dock", Actor: "a"}, wantErr: "requires target"},
		{name: "attack all without fleet", spec: OrderSpec{Action: "attack_all", Target: "b"}, wantErr: "requires fleet"},
		{name: "bad until", spec: OrderSpec{Action: "attack_all", Fleet: 1, Target: "b", Until: "dawn"}, wantErr: "unsupported until"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.Order()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScenario_Validate(t *testing.T) {
	sc := &Scenario{
		Fleets: []FleetSpec{
			{Player: 1, Starships: []EntitySpec{{Name: "a"}, {Name: ""}}},
			{Player: 1, Starbases: []EntitySpec{{Name: "a"}}},
			{Player: 0},
		},
		Turns: []Turn{{Orders: []OrderSpec{{Action: "warp"}}}},
	}

	err := sc.Validate()

	require.ErrorIs(t, err, ErrInvalid)
	for _, want := range []string{
		"name is required",
		"entity without a name",
		"duplicate player 1",
		`duplicate entity name "a"`,
		"player must be positive",
		"turns[0].orders[0]",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestScenario_ValidateScripted(t *testing.T) {
	sc := &Scenario{Name: "s", Script: []byte("end_turn()")}
	assert.NoError(t, sc.Validate(), "scripts declare fleets at run time")
	assert.True(t, sc.Scripted())
}

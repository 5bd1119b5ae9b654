package entities

import "fmt"

// Sector is a cell on the map grid.
type Sector struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (s Sector) String() string {
	return fmt.Sprintf("(%d,%d)", s.X, s.Y)
}

// Player owns a fleet. Number is unique within a game.
type Player struct {
	Number uint `json:"number" yaml:"number"`
}

func (p Player) String() string {
	return fmt.Sprintf("player %d", p.Number)
}

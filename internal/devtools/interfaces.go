package devtools

import (
	"ctfdojo/internal/catalog"
	"ctfdojo/internal/game"
)

type Demo interface {
	Resolve(name string) (Scenario, error)
	Script(cat catalog.Catalog, sc Scenario) []string
	Events(cat catalog.Catalog, sc Scenario, duration int) []game.Event
	Apply(engine *game.Engine, s game.Session, events []game.Event) game.Session
}

package state

// Read accessors used by rule evaluation in other packages.

func (gs *GameState) GetChapter() int { return gs.Story.CurrentChapter }

func (gs *GameState) GetOrigin() string { return gs.Story.Origin }

func (gs *GameState) GetLocation() string { return gs.Location }

func (gs *GameState) GetResource(name string) int { return gs.Resources.Get(name) }

func (gs *GameState) GetAspect(name string) int { return gs.Aspects.Get(name) }

func (gs *GameState) IsEventCompleted(id string) bool { return gs.Story.IsCompleted(id) }

package world

// WorldConfig describes one world instance. Zero values are filled in by
// applyDefaults.
type WorldConfig struct {
	ID    string
	SizeX int
	SizeY int
	Seed  int64

	Companies       int
	StartPerCompany int64 // starting funds

	// Terrain sprinkling (permille of tiles).
	SlopePermille  int
	SnowPermille   int
	BarrenPermille int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.SizeX <= 0 {
		c.SizeX = 512
	}
	if c.SizeY <= 0 {
		c.SizeY = 512
	}
	if c.Companies <= 0 {
		c.Companies = 8
	}
	if c.StartPerCompany <= 0 {
		c.StartPerCompany = 10_000_000
	}
	if c.SlopePermille <= 0 {
		c.SlopePermille = 0 // flat by default; scenarios set slopes explicitly
	}
	if c.SnowPermille <= 0 {
		c.SnowPermille = 30
	}
	if c.BarrenPermille <= 0 {
		c.BarrenPermille = 15
	}
}

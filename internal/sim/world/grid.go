package world

import (
	"crypto/sha256"
	"encoding/binary"

	"railgrid.dev/internal/sim/rail"
)

const chunkDim = 16

type ChunkKey struct {
	CX int
	CY int
}

// Chunk holds a 16x16 block of tiles. Generated lazily, accessed only
// from the command layer.
type Chunk struct {
	CX, CY int
	Tiles  []Tile // len = 16*16, x fastest

	dirty bool
	hash  [32]byte
}

func (c *Chunk) index(x, y int) int {
	return x + y*chunkDim
}

func (c *Chunk) at(x, y int) *Tile {
	return &c.Tiles[c.index(x, y)]
}

// Digest hashes the structural tile state for determinism checks.
func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [8]byte
		for i := range c.Tiles {
			t := &c.Tiles[i]
			tmp[0] = byte(t.Kind)
			tmp[1] = t.Owner
			tmp[2] = byte(t.Ground)
			tmp[3] = byte(t.Slope)
			tmp[4] = byte(t.TrackBits)
			tmp[5] = byte(t.Rail.primary)
			tmp[6] = byte(t.Rail.secondary)
			tmp[7] = byte(t.SignalBitCount())
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// Grid is the chunked tile store.
type Grid struct {
	sizeX, sizeY   int
	seed           int64
	snowPermille   int
	barrenPermille int

	chunks map[ChunkKey]*Chunk
}

func NewGrid(cfg WorldConfig) *Grid {
	return &Grid{
		sizeX:          cfg.SizeX,
		sizeY:          cfg.SizeY,
		seed:           cfg.Seed,
		snowPermille:   cfg.SnowPermille,
		barrenPermille: cfg.BarrenPermille,
		chunks:         map[ChunkKey]*Chunk{},
	}
}

func (g *Grid) SizeX() int { return g.sizeX }
func (g *Grid) SizeY() int { return g.sizeY }

func (g *Grid) InBounds(c TileCoord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.sizeX && c.Y < g.sizeY
}

// Tile returns the tile at c, generating its chunk on first touch.
// Out-of-bounds coordinates return nil.
func (g *Grid) Tile(c TileCoord) *Tile {
	if !g.InBounds(c) {
		return nil
	}
	key := ChunkKey{floorDiv(c.X, chunkDim), floorDiv(c.Y, chunkDim)}
	ch := g.chunks[key]
	if ch == nil {
		ch = g.generate(key)
		g.chunks[key] = ch
	}
	return ch.at(mod(c.X, chunkDim), mod(c.Y, chunkDim))
}

// MarkDirty must be called after a commit-phase mutation of the tile.
func (g *Grid) MarkDirty(c TileCoord) {
	key := ChunkKey{floorDiv(c.X, chunkDim), floorDiv(c.Y, chunkDim)}
	if ch := g.chunks[key]; ch != nil {
		ch.dirty = true
	}
}

// Chunks iterates all generated chunks (save/load and digests).
func (g *Grid) Chunks(fn func(key ChunkKey, ch *Chunk)) {
	for k, ch := range g.chunks {
		fn(k, ch)
	}
}

func (g *Grid) generate(key ChunkKey) *Chunk {
	ch := &Chunk{CX: key.CX, CY: key.CY, Tiles: make([]Tile, chunkDim*chunkDim)}
	for y := 0; y < chunkDim; y++ {
		for x := 0; x < chunkDim; x++ {
			wx := key.CX*chunkDim + x
			wy := key.CY*chunkDim + y
			t := ch.at(x, y)
			t.Kind = KindClear
			t.Owner = NoCompany
			t.Ground = groundFrom(hash2(g.seed, wx, wy), g.snowPermille, g.barrenPermille)
			t.Slope = rail.SlopeFlat
		}
	}
	return ch
}

func groundFrom(h uint64, snowPermille, barrenPermille int) GroundType {
	v := int(h % 1000)
	if v < snowPermille {
		return GroundSnow
	}
	if v < snowPermille+barrenPermille {
		return GroundBarren
	}
	return GroundGrass
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func hash2(seed int64, x, y int) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(x)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(int64(y)))
	sum := sha256.Sum256(buf[:])
	return binary.LittleEndian.Uint64(sum[:8])
}

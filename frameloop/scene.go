package frameloop

import (
	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is the only vertex layout the triangle pipeline accepts: a 2D position.
type Vertex struct {
	Position mgl32.Vec2
}

var DefaultTriangle = []Vertex{
	{Position: mgl32.Vec2{-0.5, -0.5}},
	{Position: mgl32.Vec2{0.0, 0.5}},
	{Position: mgl32.Vec2{0.5, -0.25}},
}

var DefaultClearColor = math32.Color4{R: 0.1, G: 0.1, B: 0.1, A: 1.0}

type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// ViewportForExtent covers the whole swapchain image. It is computed once from the
// initial extent and is not updated when the window is resized.
func ViewportForExtent(width, height int) Viewport {
	return Viewport{
		Width:    float32(width),
		Height:   float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

// Scene holds everything a recorded frame reads. It is never written after the loop
// starts, so every iteration sees the same values.
type Scene struct {
	ClearColor math32.Color4
	Viewport   Viewport
	Vertices   []Vertex
}

func NewScene(width, height int) Scene {
	vertices := make([]Vertex, len(DefaultTriangle))
	copy(vertices, DefaultTriangle)

	return Scene{
		ClearColor: DefaultClearColor,
		Viewport:   ViewportForExtent(width, height),
		Vertices:   vertices,
	}
}

func (s Scene) validate() error {
	if len(s.Vertices) == 0 {
		return errors.New("scene has no vertices")
	}
	if s.Viewport.Width <= 0 || s.Viewport.Height <= 0 {
		return errors.Newf("scene viewport %gx%g is empty", s.Viewport.Width, s.Viewport.Height)
	}
	return nil
}

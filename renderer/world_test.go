package renderer

import (
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pupil/components"
)

func TestCounterClockwise(t *testing.T) {
	a := rl.Vector2{X: 0, Y: 0}
	down := rl.Vector2{X: 0, Y: 10}
	right := rl.Vector2{X: 10, Y: 0}

	// Screen y points down, so a -> down -> right is counter-clockwise.
	_, b, c := counterClockwise(a, down, right)
	if b != down || c != right {
		t.Errorf("expected order kept, got %v %v", b, c)
	}

	_, b, c = counterClockwise(a, right, down)
	if b != down || c != right {
		t.Errorf("expected order swapped, got %v %v", b, c)
	}
}

func TestReadingColor(t *testing.T) {
	near := ReadingColor(components.Hit(0))
	far := ReadingColor(components.Hit(1))
	if near.G >= far.G {
		t.Errorf("close readings should be redder: near G=%d far G=%d", near.G, far.G)
	}
	if ReadingColor(components.Reading{}).A >= near.A {
		t.Error("no detection should be fainter than a hit")
	}
}

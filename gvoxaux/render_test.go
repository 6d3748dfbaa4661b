package gvoxaux

import (
	"testing"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gvox/glexec"
)

func TestRenderConfigDefaults(t *testing.T) {
	offset := ms3.Vec{X: -16, Y: -8, Z: -16}
	cfg := RenderConfig{Size: 32, Exec: glexec.Config{Offset: offset}}.withDefaults()
	if cfg.Exec.Offset != offset {
		t.Errorf("offset overwritten: %v", cfg.Exec.Offset)
	}
	if cfg.Exec.Scale != (ms3.Vec{X: 1, Y: 1, Z: 1}) {
		t.Errorf("zero scale not defaulted: %v", cfg.Exec.Scale)
	}
	if cfg.Exec.Size != 32 || cfg.ColorConversion == nil {
		t.Errorf("size or color conversion not set: %+v", cfg.Exec)
	}
	scale := ms3.Vec{X: 2, Y: 1, Z: 2}
	cfg = RenderConfig{Size: 8, Exec: glexec.Config{Size: 100, Scale: scale}}.withDefaults()
	if cfg.Exec.Scale != scale || cfg.Exec.Size != 8 {
		t.Errorf("explicit config not kept: %+v", cfg.Exec)
	}
}

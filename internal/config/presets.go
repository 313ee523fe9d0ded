package config

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

var Presets = map[string]Scene{
	"drop": {
		Name:   "drop",
		Ground: Ground{Size: 33, Cell: 1},
		Bodies: []Body{
			{Name: "ball", Shape: "sphere", Radius: 0.5, Position: mgl64.Vec3{0, 5, 0}, Mass: 1, Restitution: 0.5},
		},
	},
	"stack": {
		Name:   "stack",
		Ground: Ground{Size: 33, Cell: 1},
		Bodies: []Body{
			{Name: "base", Shape: "box", HalfExtent: mgl64.Vec3{2, 0.25, 2}, Position: mgl64.Vec3{0, 0.25, 0}, Motion: "static", Layer: "non_moving", Manual: true},
			{Name: "crate-1", Shape: "box", HalfExtent: mgl64.Vec3{0.5, 0.5, 0.5}, Position: mgl64.Vec3{0, 1.5, 0}, Mass: 10},
			{Name: "crate-2", Shape: "box", HalfExtent: mgl64.Vec3{0.5, 0.5, 0.5}, Position: mgl64.Vec3{0.1, 3, 0}, Mass: 10},
			{Name: "crate-3", Shape: "box", HalfExtent: mgl64.Vec3{0.5, 0.5, 0.5}, Position: mgl64.Vec3{-0.1, 4.5, 0.1}, Mass: 10},
		},
	},
	"hills": {
		Name:   "hills",
		Ground: Ground{Size: 65, Cell: 0.5, Amplitude: 0.75},
		Bodies: []Body{
			{Name: "boulder-1", Shape: "sphere", Radius: 0.75, Position: mgl64.Vec3{-4, 6, -4}, Mass: 50, Friction: 0.6},
			{Name: "boulder-2", Shape: "sphere", Radius: 0.5, Position: mgl64.Vec3{3, 8, 2}, Mass: 20, Friction: 0.6},
			{Name: "lift", Shape: "box", HalfExtent: mgl64.Vec3{1, 0.1, 1}, Position: mgl64.Vec3{6, 2, 6}, Motion: "kinematic", Velocity: mgl64.Vec3{0, 0.25, 0}},
		},
		Characters: []Character{
			{Name: "player", Position: mgl64.Vec3{0, 4, 0}, Simulated: true},
		},
	},
	"crowd": {
		Name:   "crowd",
		Ground: Ground{Size: 33, Cell: 1},
		Characters: []Character{
			{Name: "npc-1", Position: mgl64.Vec3{-3, 2, -3}, Simulated: true},
			{Name: "npc-2", Position: mgl64.Vec3{3, 2, -3}, Simulated: true},
			{Name: "npc-3", Position: mgl64.Vec3{-3, 2, 3}, Simulated: true},
			{Name: "npc-4", Position: mgl64.Vec3{3, 2, 3}, Simulated: true},
			{Name: "camera", Position: mgl64.Vec3{0, 6, 0}},
		},
	},
}

// GetPreset returns a copy of the named scene, or nil.
func GetPreset(name string) *Scene {
	preset, ok := Presets[name]
	if !ok {
		return nil
	}
	scene := preset
	scene.Bodies = append([]Body(nil), preset.Bodies...)
	scene.Characters = append([]Character(nil), preset.Characters...)
	return &scene
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

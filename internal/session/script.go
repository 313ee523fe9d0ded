package session

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simhost/internal/character"
	"gopkg.in/yaml.v3"
)

const (
	ActionPause     = "pause"
	ActionUnpause   = "unpause"
	ActionTimeScale = "time_scale"
	ActionTeleport  = "teleport"
	ActionPlace     = "place"
	ActionDrive     = "drive"
	ActionRelease   = "release"
	ActionImpulse   = "impulse"
	ActionVelocity  = "velocity"
)

// Script is a list of timed actions applied by the render loop.
type Script struct {
	Name    string   `yaml:"name"`
	Actions []Action `yaml:"actions"`
}

// Action fires once, on the first frame whose session time is at or past At.
type Action struct {
	At     float64    `yaml:"at"`
	Do     string     `yaml:"do"`
	Target string     `yaml:"target"`
	Value  float64    `yaml:"value"`
	Vector mgl64.Vec3 `yaml:"vector"`
}

func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, err
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

func (s *Script) Validate() error {
	for i, a := range s.Actions {
		if a.At < 0 {
			return fmt.Errorf("script %q: action %d: negative time %f", s.Name, i, a.At)
		}
		switch a.Do {
		case ActionPause, ActionUnpause:
		case ActionTimeScale:
			if a.Value <= 0 {
				return fmt.Errorf("script %q: action %d: time_scale needs a positive value", s.Name, i)
			}
		case ActionTeleport, ActionPlace, ActionDrive, ActionRelease, ActionImpulse, ActionVelocity:
			if a.Target == "" {
				return fmt.Errorf("script %q: action %d: %s needs a target", s.Name, i, a.Do)
			}
		default:
			return fmt.Errorf("script %q: action %d: unknown action %q", s.Name, i, a.Do)
		}
	}
	return nil
}

// sorted returns the actions ordered by time, keeping file order for ties.
func (s *Script) sorted() []Action {
	if s == nil {
		return nil
	}
	out := append([]Action(nil), s.Actions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At < out[j].At })
	return out
}

// apply runs one action against the session. It is called on the render
// goroutine.
func (s *Session) apply(a Action) error {
	switch a.Do {
	case ActionPause:
		s.sys.PauseSimulation()
	case ActionUnpause:
		s.sys.UnpauseSimulation()
	case ActionTimeScale:
		s.sys.SetTimeScale(a.Value)
	case ActionPlace:
		e, ok := s.scene.Lookup(a.Target)
		if !ok {
			return fmt.Errorf("%s: unknown entity %q", a.Do, a.Target)
		}
		return s.scene.Place(e, a.Vector, mgl64.QuatIdent(), true)
	case ActionDrive, ActionRelease:
		e, ok := s.scene.Lookup(a.Target)
		if !ok {
			return fmt.Errorf("%s: unknown entity %q", a.Do, a.Target)
		}
		if a.Do == ActionDrive {
			return s.scene.Drive(e)
		}
		return s.scene.Release(e)
	case ActionTeleport, ActionImpulse, ActionVelocity:
		h, ok := s.scene.CharacterHandle(a.Target)
		if !ok {
			return fmt.Errorf("%s: unknown character %q", a.Do, a.Target)
		}
		return s.sys.MutateCharacter(h, func(c *character.Controller) {
			switch a.Do {
			case ActionTeleport:
				c.Teleport(a.Vector)
			case ActionImpulse:
				c.AddImpulse(a.Vector)
			default:
				c.SetLinearVelocity(a.Vector)
			}
		})
	default:
		return fmt.Errorf("unknown action %q", a.Do)
	}
	return nil
}

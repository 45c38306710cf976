package agent

import "github.com/BaSui01/agentfoundry/types"

// Parameter bounds for every numeric strategy knob.
const (
	MinParam = 0.1
	MaxParam = 1.0
)

// Strategy holds an agent's mutable behavior knobs: one categorical Mode and
// a set of bounded numeric parameters. The meta-learner is the only writer
// after construction.
type Strategy struct {
	Mode   string             `json:"mode"`
	Params map[string]float64 `json:"params"`
}

// roleModes lists each role's Mode rotation, first entry is the default.
var roleModes = map[types.Role][]string{
	types.RoleArchitect: {"microservices", "event_driven", "layered", "serverless"},
	types.RoleCoder:     {"idiomatic", "defensive", "minimal", "performance"},
	types.RoleExecutor:  {"sandbox", "container", "dry_run"},
	types.RoleCritic:    {"standard", "strict", "security_focused"},
	types.RoleDeployer:  {"rolling", "blue_green", "canary"},
}

// defaultTemperature is the starting exploration level per role.
var defaultTemperature = map[types.Role]float64{
	types.RoleArchitect: 0.7,
	types.RoleCoder:     0.5,
	types.RoleExecutor:  0.2,
	types.RoleCritic:    0.3,
	types.RoleDeployer:  0.2,
}

// DefaultStrategy returns the starting strategy for a role.
func DefaultStrategy(role types.Role) Strategy {
	temp, ok := defaultTemperature[role]
	if !ok {
		temp = 0.5
	}
	mode := ""
	if modes := roleModes[role]; len(modes) > 0 {
		mode = modes[0]
	}
	return Strategy{
		Mode: mode,
		Params: map[string]float64{
			"temperature":  temp,
			"thoroughness": 0.5,
		},
	}
}

// Clone returns a deep copy.
func (s Strategy) Clone() Strategy {
	c := Strategy{Mode: s.Mode}
	if s.Params != nil {
		c.Params = make(map[string]float64, len(s.Params))
		for k, v := range s.Params {
			c.Params[k] = v
		}
	}
	return c
}

// Param returns a named parameter, or its fallback when unset.
func (s Strategy) Param(name string, fallback float64) float64 {
	if s.Params == nil {
		return fallback
	}
	if v, ok := s.Params[name]; ok {
		return v
	}
	return fallback
}

// nudge moves a named parameter by delta, clamped to [MinParam, MaxParam],
// and returns the applied delta.
func (s *Strategy) nudge(name string, delta float64) float64 {
	if s.Params == nil {
		s.Params = make(map[string]float64, 2)
	}
	old := s.Param(name, MinParam)
	next := clampParam(old + delta)
	s.Params[name] = next
	return next - old
}

// rotateMode advances Mode to the role's next option; single-option roles
// keep their mode.
func (s *Strategy) rotateMode(role types.Role) bool {
	modes := roleModes[role]
	if len(modes) < 2 {
		return false
	}
	for i, m := range modes {
		if m == s.Mode {
			s.Mode = modes[(i+1)%len(modes)]
			return true
		}
	}
	s.Mode = modes[0]
	return true
}

func clampParam(v float64) float64 {
	if v < MinParam {
		return MinParam
	}
	if v > MaxParam {
		return MaxParam
	}
	return v
}

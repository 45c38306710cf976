package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentfoundry/types"
)

func TestDefaultStrategyPerRole(t *testing.T) {
	cases := []struct {
		role types.Role
		mode string
		temp float64
	}{
		{types.RoleArchitect, "microservices", 0.7},
		{types.RoleCoder, "idiomatic", 0.5},
		{types.RoleExecutor, "sandbox", 0.2},
		{types.RoleCritic, "standard", 0.3},
		{types.RoleDeployer, "rolling", 0.2},
	}
	for _, tc := range cases {
		st := DefaultStrategy(tc.role)
		assert.Equal(t, tc.mode, st.Mode, "role %s", tc.role)
		assert.InDelta(t, tc.temp, st.Param("temperature", -1), 1e-9, "role %s", tc.role)
		assert.InDelta(t, 0.5, st.Param("thoroughness", -1), 1e-9, "role %s", tc.role)
	}
}

func TestStrategyCloneIsIndependent(t *testing.T) {
	st := DefaultStrategy(types.RoleCoder)
	clone := st.Clone()
	clone.Mode = "minimal"
	clone.Params["temperature"] = 0.9

	assert.Equal(t, "idiomatic", st.Mode)
	assert.InDelta(t, 0.5, st.Param("temperature", -1), 1e-9)
}

func TestStrategyNudgeClamps(t *testing.T) {
	st := DefaultStrategy(types.RoleCoder)

	applied := st.nudge("temperature", 0.05)
	assert.InDelta(t, 0.05, applied, 1e-9)
	assert.InDelta(t, 0.55, st.Param("temperature", -1), 1e-9)

	// Pushing past the ceiling applies only the remaining headroom.
	applied = st.nudge("temperature", 10)
	assert.InDelta(t, MaxParam-0.55, applied, 1e-9)
	assert.InDelta(t, MaxParam, st.Param("temperature", -1), 1e-9)

	applied = st.nudge("temperature", -10)
	assert.InDelta(t, MinParam-MaxParam, applied, 1e-9)
	assert.InDelta(t, MinParam, st.Param("temperature", -1), 1e-9)
}

func TestStrategyNudgeUnknownParamStartsAtFloor(t *testing.T) {
	st := Strategy{Mode: "idiomatic"}
	applied := st.nudge("focus", 0.05)
	assert.InDelta(t, 0.05, applied, 1e-9)
	assert.InDelta(t, MinParam+0.05, st.Param("focus", -1), 1e-9)
}

func TestStrategyRotateModeCycles(t *testing.T) {
	st := DefaultStrategy(types.RoleExecutor)
	seen := []string{st.Mode}
	for i := 0; i < 3; i++ {
		require.True(t, st.rotateMode(types.RoleExecutor))
		seen = append(seen, st.Mode)
	}
	assert.Equal(t, []string{"sandbox", "container", "dry_run", "sandbox"}, seen)
}

func TestStrategyRotateModeUnknownRole(t *testing.T) {
	st := Strategy{Mode: "whatever"}
	assert.False(t, st.rotateMode(types.Role("mystery")))
	assert.Equal(t, "whatever", st.Mode)
}

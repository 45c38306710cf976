package agent

import (
	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/types"
)

// Trend classifies the direction of recent scores relative to the full history.
type Trend string

const (
	TrendImproving    Trend = "improving"
	TrendDeclining    Trend = "declining"
	TrendStable       Trend = "stable"
	TrendInsufficient Trend = "insufficient" // Fewer than two samples
)

// MetaLearnerConfig tunes trend detection and strategy adjustment.
type MetaLearnerConfig struct {
	// RecentWindow is how many trailing scores form the "recent" mean.
	RecentWindow int `yaml:"recent_window" json:"recent_window"`
	// Step is the parameter nudge applied per adjustment.
	Step float64 `yaml:"step" json:"step"`
	// Epsilon is the dead band around the overall mean; recent means
	// within it count as stable.
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`
}

// DefaultMetaLearnerConfig returns the standard tuning.
func DefaultMetaLearnerConfig() MetaLearnerConfig {
	return MetaLearnerConfig{
		RecentWindow: 3,
		Step:         0.05,
		Epsilon:      0.05,
	}
}

// Validate checks the configuration bounds.
func (c MetaLearnerConfig) Validate() error {
	if c.RecentWindow < 1 {
		return types.NewInvalidConfigError("meta-learner recent_window must be >= 1")
	}
	if c.Step <= 0 {
		return types.NewInvalidConfigError("meta-learner step must be > 0")
	}
	if c.Epsilon < 0 {
		return types.NewInvalidConfigError("meta-learner epsilon must be >= 0")
	}
	return nil
}

// Insight is the read-only analysis of a memory log.
type Insight struct {
	Samples       int     `json:"samples"`
	Average       float64 `json:"average"`
	RecentAverage float64 `json:"recent_average"`
	Best          float64 `json:"best"`
	Worst         float64 `json:"worst"`
	Trend         Trend   `json:"trend"`
}

// Adjustment records what Apply changed on a strategy.
type Adjustment struct {
	Trend       Trend   `json:"trend"`
	Param       string  `json:"param,omitempty"`
	Delta       float64 `json:"delta,omitempty"`
	ModeRotated bool    `json:"mode_rotated,omitempty"`
	NewMode     string  `json:"new_mode,omitempty"`
}

// MetaLearner turns score history into strategy adjustments. It is
// stateless between calls; all history lives in the agent's memory log.
type MetaLearner struct {
	cfg    MetaLearnerConfig
	logger *zap.Logger
}

// NewMetaLearner creates a meta-learner with the given tuning.
func NewMetaLearner(cfg MetaLearnerConfig, logger *zap.Logger) *MetaLearner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaLearner{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "metalearner")),
	}
}

// Analyze computes an Insight from the log's scores. The same log always
// yields the same Insight.
func (m *MetaLearner) Analyze(log *MemoryLog) Insight {
	scores := log.Scores()
	in := Insight{Samples: len(scores), Trend: TrendInsufficient}
	if len(scores) == 0 {
		return in
	}

	sum := 0.0
	in.Best = scores[0]
	in.Worst = scores[0]
	for _, s := range scores {
		sum += s
		if s > in.Best {
			in.Best = s
		}
		if s < in.Worst {
			in.Worst = s
		}
	}
	in.Average = sum / float64(len(scores))

	start := len(scores) - m.cfg.RecentWindow
	if start < 0 {
		start = 0
	}
	recent := scores[start:]
	rsum := 0.0
	for _, s := range recent {
		rsum += s
	}
	in.RecentAverage = rsum / float64(len(recent))

	if len(scores) < 2 {
		return in
	}
	switch {
	case in.RecentAverage > in.Average+m.cfg.Epsilon:
		in.Trend = TrendImproving
	case in.RecentAverage < in.Average-m.cfg.Epsilon:
		in.Trend = TrendDeclining
	default:
		in.Trend = TrendStable
	}
	return in
}

// Apply analyzes the log and mutates the strategy in place:
//
//   - improving: reinforce by raising thoroughness by Step
//   - declining: explore by raising temperature by Step and rotating the mode
//   - stable or insufficient: leave the strategy alone
//
// Parameters stay clamped to [MinParam, MaxParam]; Delta reports the
// amount actually applied after clamping.
func (m *MetaLearner) Apply(role types.Role, st *Strategy, log *MemoryLog) Adjustment {
	in := m.Analyze(log)
	adj := Adjustment{Trend: in.Trend}

	switch in.Trend {
	case TrendImproving:
		adj.Param = "thoroughness"
		adj.Delta = st.nudge("thoroughness", m.cfg.Step)
	case TrendDeclining:
		adj.Param = "temperature"
		adj.Delta = st.nudge("temperature", m.cfg.Step)
		adj.ModeRotated = st.rotateMode(role)
		adj.NewMode = st.Mode
	default:
		return adj
	}

	m.logger.Debug("strategy adjusted",
		zap.String("role", string(role)),
		zap.String("trend", string(in.Trend)),
		zap.String("param", adj.Param),
		zap.Float64("delta", adj.Delta),
		zap.Bool("mode_rotated", adj.ModeRotated))
	return adj
}

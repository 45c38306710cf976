package types

// Task is the unit of work a pipeline carries through its five stages.
//
// The reflexion loop treats a Task as opaque; only the role agents interpret
// it. Stage artifacts (Architecture, Code, Execution, Review) are filled in
// by the orchestrator as earlier stages complete, so each stage sees what was
// produced before it, possibly partially when an earlier stage failed.
type Task struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements,omitempty"`
	Constraints  []string `json:"constraints,omitempty"`
	Language     string   `json:"language,omitempty"`

	// Accumulated stage artifacts.
	Architecture string           `json:"architecture,omitempty"`
	Components   []string         `json:"components,omitempty"`
	Code         string           `json:"code,omitempty"`
	Execution    *ExecutionResult `json:"execution,omitempty"`
	Review       *ReviewResult    `json:"review,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy so pipelines never share mutable task state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Requirements = append([]string(nil), t.Requirements...)
	c.Constraints = append([]string(nil), t.Constraints...)
	c.Components = append([]string(nil), t.Components...)
	if t.Execution != nil {
		ex := *t.Execution
		c.Execution = &ex
	}
	if t.Review != nil {
		rv := *t.Review
		rv.Suggestions = append([]string(nil), t.Review.Suggestions...)
		c.Review = &rv
	}
	if t.Metadata != nil {
		c.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

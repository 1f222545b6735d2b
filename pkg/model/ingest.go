package model

type Stage string

const (
	StagePolicy  Stage = "policy"
	StageCreate  Stage = "create"
	StageResolve Stage = "resolve"
	StageIndex   Stage = "index"
	StageAttach  Stage = "attach"
	StageJournal Stage = "journal"
)

type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StagePending StageStatus = "pending"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

// StageReport is the diagnostic record of one pipeline stage.
type StageReport struct {
	Stage  Stage       `json:"stage" yaml:"stage" firestore:"stage"`
	Status StageStatus `json:"status" yaml:"status" firestore:"status"`
	Error  string      `json:"error,omitempty" yaml:"error,omitempty" firestore:"error,omitempty"`
}

// IngestOptions tunes one ingestion.
type IngestOptions struct {
	DisplayName string
	AgentID     AgentID
	Model       string
	SkipAttach  bool
}

// IngestResult is returned whenever a document was created, including partial success.
// Callers must check Attached rather than assume attachment happened.
type IngestResult struct {
	RunID       RunID          `json:"run_id" yaml:"run_id"`
	Document    *Document      `json:"document" yaml:"document"`
	AgentID     AgentID        `json:"agent_id,omitempty" yaml:"agent_id,omitempty"`
	Index       *Index         `json:"index,omitempty" yaml:"index,omitempty"`
	IndexStatus IndexStatus    `json:"index_status" yaml:"index_status"`
	Attached    bool           `json:"attached" yaml:"attached"`
	Stages      []*StageReport `json:"stages" yaml:"stages"`
}

// Record appends a stage report.
func (x *IngestResult) Record(stage Stage, status StageStatus, err error) {
	report := &StageReport{Stage: stage, Status: status}
	if err != nil {
		report.Error = err.Error()
	}
	x.Stages = append(x.Stages, report)
}

// Stage returns the last report for stage, or nil.
func (x *IngestResult) Stage(stage Stage) *StageReport {
	for i := len(x.Stages) - 1; i >= 0; i-- {
		if x.Stages[i].Stage == stage {
			return x.Stages[i]
		}
	}
	return nil
}

// Partial reports whether any stage after create failed or was left pending.
func (x *IngestResult) Partial() bool {
	if x.IndexStatus != IndexStatusSucceeded {
		return true
	}
	for _, s := range x.Stages {
		if s.Status == StageFailed && s.Stage != StageJournal {
			return true
		}
	}
	return false
}

// ReindexOptions tunes recomputation of an existing document's index.
type ReindexOptions struct {
	AgentID AgentID
	Model   string
	Attach  bool
}

// BatchItem is the outcome of one source in a batch ingestion.
type BatchItem struct {
	Source string        `json:"source" yaml:"source"`
	Result *IngestResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
}

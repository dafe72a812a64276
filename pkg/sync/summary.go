package sync

// Batch kinds, used in summaries and log lines.
const (
	KindVideos         = "videos"
	KindUsers          = "users"
	KindQuestionGroups = "question_groups"
	KindSchemas        = "schemas"
	KindProjects       = "projects"
	KindProjectGroups  = "project_groups"
	KindAssignments    = "assignments"
	KindAnnotations    = "annotations"
	KindGroundTruths   = "ground_truths"
)

// DisplayStats counts display override actions taken during a project sync.
type DisplayStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Skipped int `json:"skipped"`
}

// Summary reports the outcome of one batch. When Errors is non-empty the
// batch was rejected and every count is zero.
type Summary struct {
	Kind    string         `json:"kind"`
	Total   int            `json:"total"`
	Created int            `json:"created"`
	Updated int            `json:"updated"`
	Removed int            `json:"removed"`
	Skipped int            `json:"skipped"`
	Display *DisplayStats  `json:"display,omitempty"`
	Errors  []*RecordError `json:"errors,omitempty"`
}

func newSummary(kind string, total int) *Summary {
	return &Summary{Kind: kind, Total: total}
}

// reject zeroes the counts, attaches the batch errors and returns the pair
// every Sync method hands back on a rejected batch.
func (s *Summary) reject(batch *BatchErrors) (*Summary, error) {
	s.Created, s.Updated, s.Removed, s.Skipped = 0, 0, 0, 0
	s.Display = nil
	s.Errors = batch.Errs
	return s, batch
}

package core

// Phase indicates the current stage of an export or import run.
type Phase string

const (
	PhasePreparing       Phase = "preparing"
	PhaseFetchingData    Phase = "fetchingData"
	PhaseWritingCSV      Phase = "writingCSV"
	PhaseCopyingPhotos   Phase = "copyingPhotos"
	PhaseCreatingArchive Phase = "creatingArchive"

	PhaseUnzipping      Phase = "unzipping"
	PhaseReadingCSV     Phase = "readingCSV"
	PhaseProcessingData Phase = "processingData"

	PhaseCompleted Phase = "completed"
	PhaseError     Phase = "error"
)

// Event is one entry of an operation's progress stream. The concrete types
// are Progress, ExportCompleted, ImportCompleted and Failed; a stream ends
// with exactly one of the last three unless the run was cancelled.
type Event interface {
	Phase() Phase
	event()
}

// Progress reports work inside a phase, either as Current of Total units or,
// when Total is 0, as a Fraction in [0, 1].
type Progress struct {
	Stage    Phase
	Current  int
	Total    int
	Fraction float64
}

func (p Progress) Phase() Phase { return p.Stage }
func (Progress) event()         {}

// Local returns progress inside the phase, clamped to [0, 1].
func (p Progress) Local() float64 {
	f := p.Fraction
	if p.Total > 0 {
		f = float64(p.Current) / float64(p.Total)
	}
	return min(max(f, 0), 1)
}

// ExportCompleted ends a successful export.
type ExportCompleted struct {
	Result ExportResult
}

func (ExportCompleted) Phase() Phase { return PhaseCompleted }
func (ExportCompleted) event()       {}

// ImportCompleted ends a successful import.
type ImportCompleted struct {
	Result ImportResult
}

func (ImportCompleted) Phase() Phase { return PhaseCompleted }
func (ImportCompleted) event()       {}

// Failed ends a run that hit a fatal error.
type Failed struct {
	Err Envelope
}

func (Failed) Phase() Phase { return PhaseError }
func (Failed) event()       {}

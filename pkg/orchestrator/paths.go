package orchestrator

// Paths is every filesystem location a pull or push needs, gathered in one
// place so tests can point them all at a temp directory.
type Paths struct {
	// ConfigDir holds state.yaml, filter.yaml, journal.json,
	// last-conflicts.json, and sync.lock.
	ConfigDir string
	// LocalProjectsDir is the local store's session tree (the directory the
	// assistant tool itself writes into).
	LocalProjectsDir string
	// LocalHistoryPath is the flat session index beside LocalProjectsDir, in
	// the same parent directory, used by the tool's --resume picker.
	LocalHistoryPath string
}

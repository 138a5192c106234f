package history

import "time"

// Entry is the outcome of the most recent compile of one output
type Entry struct {
	// RunID identifies the autobuild invocation that produced the entry
	RunID string `json:"run_id"`

	// Output is the absolute path of the artifact
	Output string `json:"output"`

	// Source is the absolute path of the compiled source file
	Source string `json:"source"`

	// SourceHash is the SHA256 of the source content when it was compiled
	SourceHash string `json:"source_hash,omitempty"`

	// Command is the compiler command line
	Command string `json:"command"`

	// CommandHash is the SHA256 of Command
	CommandHash string `json:"command_hash"`

	// Started is when the compiler was invoked
	Started time.Time `json:"started"`

	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	ExitCode int           `json:"exit_code"`

	// Diagnostics is the zstd-compressed compiler stderr
	Diagnostics []byte `json:"diagnostics,omitempty"`
}

// DiagnosticsText returns the decompressed compiler stderr
func (e *Entry) DiagnosticsText() (string, error) {
	data, err := decompress(e.Diagnostics)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

package execute

import "fmt"

// ErrorCodes maps common process exit codes to their descriptions
var ErrorCodes = map[int]string{
	0:   "Success",
	1:   "General failure",
	2:   "Misuse of command or invalid arguments",
	126: "Command found but not executable",
	127: "Command not found",
	128: "Invalid exit argument",
	130: "Interrupted",
	134: "Aborted",
	137: "Killed",
	139: "Segmentation fault",
	143: "Terminated",
}

// GetErrorMessage returns the error message for a given exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ErrorCodes[code]; ok {
		return msg
	}

	if code > 128 && code < 256 {
		return fmt.Sprintf("Terminated by signal %d", code-128)
	}

	return "Unknown error"
}

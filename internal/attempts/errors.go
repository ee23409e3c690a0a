package attempts

import (
	"fmt"
	"strings"
)

// errorClass derives a stable class name from an error's concrete type,
// so attempt logs can be grouped by failure kind. Pointer and package
// qualifiers are stripped: "*orchestrator.TotalTimeoutError" becomes
// "TotalTimeoutError".
func errorClass(err error) string {
	name := fmt.Sprintf("%T", err)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

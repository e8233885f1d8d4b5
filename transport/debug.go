package transport

import (
	"fmt"
	"os"
)

// debugEnabled gates the verbose wire-level trace used while developing
// against this package. It costs nothing in non-debug builds since debug()
// becomes a no-op the compiler can inline away.
const debugEnabled = false

func debug(format string, values ...interface{}) {
	if !debugEnabled {
		return
	}
	fmt.Fprintf(os.Stderr, "transport: "+format+"\n", values...)
}

// sprint concatenates its arguments the way fmt.Sprint does; defined locally
// so error-message call sites do not need to import fmt everywhere.
func sprint(values ...interface{}) string {
	return fmt.Sprint(values...)
}

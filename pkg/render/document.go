package render

import (
	"strings"

	"github.com/vango-dev/ssrdoc/pkg/engine"
)

// Assembler builds complete documents from buffered render results.
// It performs no I/O and may be shared between requests.
type Assembler struct {
	shell *Shell
}

// NewAssembler returns an Assembler that wraps markup in shell.
func NewAssembler(shell *Shell) *Assembler {
	return &Assembler{shell: shell}
}

// Assemble returns head, markup and tail as one document. The engine's
// Extra.Scripts are placed between the runtime and the app script.
// Calling it twice with the same result yields identical output.
func (a *Assembler) Assemble(res *engine.Result) (string, error) {
	dataScript, err := a.shell.DataScript(res.Extra.InitialData)
	if err != nil {
		return "", err
	}

	head := a.shell.Head(res.Extra.Title)
	tail := a.shell.Tail(dataScript, res.Extra.Scripts)

	var b strings.Builder
	b.Grow(len(head) + len(res.HTML) + len(tail))
	b.WriteString(head)
	b.WriteString(res.HTML)
	b.WriteString(tail)
	return b.String(), nil
}

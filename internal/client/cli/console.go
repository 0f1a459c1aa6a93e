package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/kinlink/internal/client/graph"
	"github.com/dmitrijs2005/kinlink/internal/client/notice"
)

// lockedWriter serializes output from the REPL and background workers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// consoleViewer prints the opened profile from the local snapshot.
type consoleViewer struct {
	out   io.Writer
	graph *graph.Store
}

func (v *consoleViewer) OpenProfile(id string) {
	p, ok := v.graph.Current().Get(id)
	if !ok {
		fmt.Fprintf(v.out, "Opened profile %s\n", id)
		return
	}

	name := p.DisplayName
	if name == "" {
		name = "(no name)"
	}
	fmt.Fprintf(v.out, "Opened %s [%s]\n", name, p.ShareCode)
	if p.Enrichment != nil {
		if p.Enrichment.Biography != "" {
			fmt.Fprintf(v.out, "  %s\n", p.Enrichment.Biography)
		}
		if p.Enrichment.PhotoURL != "" {
			fmt.Fprintf(v.out, "  photo: %s\n", p.Enrichment.PhotoURL)
		}
	}
}

func (v *consoleViewer) CenterOn(id string) {
	fmt.Fprintf(v.out, "Tree centered on %s\n", id)
}

type consoleNotifier struct {
	out io.Writer
}

func (n *consoleNotifier) Notify(nt notice.Notice) {
	printNotice(n.out, nt)
}

func printNotice(w io.Writer, n notice.Notice) {
	fmt.Fprintf(w, "[%s] %s: %s\n", n.Kind, n.Title, n.Message)
}

package main

import (
	"fmt"
	"io"
)

// progressPrinter rewrites one stderr line as the adapters page through
// their results.
type progressPrinter struct {
	w     io.Writer
	wrote bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) update(current, total int, message string) {
	fmt.Fprintf(p.w, "\r%-78s", fmt.Sprintf("[%3d%%] %s", percent(current, total), message))
	p.wrote = true
}

func (p *progressPrinter) finish() {
	if p.wrote {
		fmt.Fprintln(p.w)
	}
}

func percent(current, total int) int {
	if total <= 0 {
		return 0
	}
	pct := current * 100 / total
	if pct > 100 {
		pct = 100
	}
	return pct
}

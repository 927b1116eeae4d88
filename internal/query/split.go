// Package query splits a batch of SQL text into statements, runs them
// against a store and renders each result as a text table.
package query

import (
	"strings"
)

// PlanDirective opens a plan-explanation block: the statement it starts is
// closed by the next line ending in ";", or by the directive line itself
// when it carries the terminator. Section headers inside an open block do
// not cut it.
const PlanDirective = "EXPLAIN QUERY PLAN"

type splitState int

const (
	stateNormal splitState = iota
	statePlan
)

type splitter struct {
	state   splitState
	pending []string
	out     []string
}

func (s *splitter) flush() {
	stmt := strings.TrimSpace(strings.Join(s.pending, "\n"))
	s.pending = s.pending[:0]
	if stmt != "" {
		s.out = append(s.out, stmt)
	}
}

func (s *splitter) terminate() {
	s.flush()
	s.state = stateNormal
}

func (s *splitter) line(line string) {
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "":
		return
	case strings.HasPrefix(trimmed, "--"):
		// a section header closes an unterminated statement, but only
		// outside a plan block
		if s.state == stateNormal && strings.Contains(trimmed, "Query") {
			s.flush()
		}
		return
	case s.state == stateNormal && strings.HasPrefix(strings.ToUpper(trimmed), PlanDirective):
		s.flush()
		s.state = statePlan
	}

	s.pending = append(s.pending, line)
	if strings.HasSuffix(trimmed, ";") {
		s.terminate()
	}
}

// Split returns the executable statements of batch in order. Comment and
// blank lines are dropped, and a trailing statement without a terminator is
// kept. Terminators stay on the returned text; Runner strips them. Lines have
// no length limit.
func Split(batch string) []string {
	s := &splitter{}
	for _, line := range strings.Split(batch, "\n") {
		s.line(strings.TrimSuffix(line, "\r"))
	}
	s.flush()
	return s.out
}

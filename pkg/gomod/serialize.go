// SPDX-License-Identifier: MPL-2.0

package gomod

import (
	"fmt"
	"strings"
)

// String renders the directive sequence back to descriptor text. Runs of two
// or more consecutive directives of the same kind are rendered in block form
// (the formatting gofmt produces for go.mod); a lone directive is rendered on
// a single line. Raw lines are emitted exactly as parsed, so untouched
// content round-trips byte-for-byte.
func (f *File) String() string {
	var sb strings.Builder

	for i := 0; i < len(f.directives); i++ {
		switch d := f.directives[i].(type) {
		case ModuleDecl:
			fmt.Fprintf(&sb, "module %s\n", d.Path)

		case RawLine:
			sb.WriteString(d.Text)
			sb.WriteByte('\n')

		case Require:
			run := requireRun(f.directives[i:])
			if len(run) == 1 {
				fmt.Fprintf(&sb, "require %s\n", requireEntry(run[0]))
			} else {
				sb.WriteString("require (\n")
				for _, req := range run {
					fmt.Fprintf(&sb, "\t%s\n", requireEntry(req))
				}
				sb.WriteString(")\n")
			}
			i += len(run) - 1

		case Replace:
			run := replaceRun(f.directives[i:])
			if len(run) == 1 {
				fmt.Fprintf(&sb, "replace %s\n", replaceEntry(run[0]))
			} else {
				sb.WriteString("replace (\n")
				for _, rep := range run {
					fmt.Fprintf(&sb, "\t%s\n", replaceEntry(rep))
				}
				sb.WriteString(")\n")
			}
			i += len(run) - 1
		}
	}

	return sb.String()
}

// Bytes returns the serialized descriptor as a byte slice.
func (f *File) Bytes() []byte {
	return []byte(f.String())
}

// requireRun collects the leading run of consecutive Require directives.
func requireRun(directives []Directive) []Require {
	var run []Require
	for _, d := range directives {
		req, ok := d.(Require)
		if !ok {
			break
		}
		run = append(run, req)
	}
	return run
}

// replaceRun collects the leading run of consecutive Replace directives.
func replaceRun(directives []Directive) []Replace {
	var run []Replace
	for _, d := range directives {
		rep, ok := d.(Replace)
		if !ok {
			break
		}
		run = append(run, rep)
	}
	return run
}

// requireEntry renders a single require entry body.
func requireEntry(req Require) string {
	s := fmt.Sprintf("%s %s", req.Ref.Path, req.Ref.Version)
	if req.Suffix != "" {
		s += " " + req.Suffix
	}
	return s
}

// replaceEntry renders a single replace entry body.
func replaceEntry(rep Replace) string {
	var sb strings.Builder
	sb.WriteString(string(rep.From.Path))
	if rep.From.Version != "" {
		sb.WriteByte(' ')
		sb.WriteString(string(rep.From.Version))
	}
	sb.WriteString(" => ")
	sb.WriteString(rep.To.Path)
	if rep.To.Version != "" {
		sb.WriteByte(' ')
		sb.WriteString(string(rep.To.Version))
	}
	return sb.String()
}

// SPDX-License-Identifier: MPL-2.0

package gomod

import (
	"strings"
)

// Parse builds a File from descriptor text. The parser is line-oriented and
// recognizes the module declaration plus require and replace directives in
// both single-line and block form. Every other line (comments, go/toolchain
// directives, blank lines, malformed entries) is preserved verbatim as a
// RawLine so that serialization never disturbs content the caller did not
// mutate. The only structural failure is an unterminated block, reported as
// a ParseError.
func Parse(text string) (*File, error) {
	lines := strings.Split(text, "\n")
	// A trailing newline yields one empty trailing element; dropping it keeps
	// serialization from growing the file by one blank line per round trip.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	f := &File{}
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		code, _ := entryComment(line)
		fields := strings.Fields(code)

		switch {
		case len(fields) >= 2 && fields[0] == "module":
			f.directives = append(f.directives, ModuleDecl{Path: ModulePath(fields[1])})

		case len(fields) == 2 && fields[0] == "require" && fields[1] == "(":
			consumed, err := parseBlock(f, lines, i, "require", parseRequireEntry)
			if err != nil {
				return nil, err
			}
			i = consumed

		case len(fields) >= 3 && fields[0] == "require":
			f.directives = append(f.directives, parseRequireEntry(strings.TrimSpace(line[strings.Index(line, "require")+len("require"):])))

		case len(fields) == 2 && fields[0] == "replace" && fields[1] == "(":
			consumed, err := parseBlock(f, lines, i, "replace", parseReplaceEntry)
			if err != nil {
				return nil, err
			}
			i = consumed

		case len(fields) >= 3 && fields[0] == "replace":
			f.directives = append(f.directives, parseReplaceEntry(strings.TrimSpace(line[strings.Index(line, "replace")+len("replace"):])))

		default:
			f.directives = append(f.directives, RawLine{Text: line})
		}
	}

	return f, nil
}

// parseBlock consumes a "( ... )" directive block opened at lines[open].
// Each interior entry line is handed to parse; blank and comment-only lines
// inside the block are preserved as RawLine directives in sequence order.
// Returns the index of the closing line, or a ParseError when the block
// never closes.
func parseBlock(f *File, lines []string, open int, keyword string, parse func(string) Directive) (int, error) {
	for i := open + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == ")" {
			return i, nil
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			f.directives = append(f.directives, RawLine{Text: lines[i]})
			continue
		}
		f.directives = append(f.directives, parse(trimmed))
	}
	return 0, &ParseError{Keyword: keyword, Line: open + 1}
}

// parseRequireEntry parses "path version [// comment]". An entry that does
// not fit the shape degrades to a RawLine rather than failing the parse.
func parseRequireEntry(entry string) Directive {
	code, comment := entryComment(entry)
	fields := strings.Fields(code)
	if len(fields) != 2 {
		return RawLine{Text: "\t" + entry}
	}
	return Require{
		Ref:    ModuleRef{Path: ModulePath(fields[0]), Version: ModuleVersion(fields[1])},
		Suffix: comment,
	}
}

// parseReplaceEntry parses "from [version] => to [version]". An entry
// without the "=>" separator or with an unexpected field count degrades to
// a RawLine.
func parseReplaceEntry(entry string) Directive {
	code, _ := entryComment(entry)
	lhs, rhs, found := strings.Cut(code, "=>")
	if !found {
		return RawLine{Text: "\t" + entry}
	}

	from := strings.Fields(lhs)
	to := strings.Fields(rhs)
	if len(from) < 1 || len(from) > 2 || len(to) < 1 || len(to) > 2 {
		return RawLine{Text: "\t" + entry}
	}

	rep := Replace{From: ModuleRef{Path: ModulePath(from[0])}}
	if len(from) == 2 {
		rep.From.Version = ModuleVersion(from[1])
	}
	rep.To.Path = to[0]
	if len(to) == 2 {
		rep.To.Version = ModuleVersion(to[1])
	}
	return rep
}

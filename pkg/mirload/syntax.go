// Package mirload reads MIR function bodies from YAML documents.
//
// Blocks, statements and terminators are YAML mappings with a "kind" key.
// Places and operands use the same compact syntax the mir printer emits:
//
//	_1  _1.0  _1.*  _1[_2]  _1[3]  _1@1      places
//	copy _1  move _1.0  const 5  _1           operands (a bare place is a copy)
package mirload

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-mir/pkg/mir"
)

// ErrSyntax is wrapped by every error caused by malformed input
var ErrSyntax = errors.New("syntax error")

// ParsePlace parses a place such as "_1.0[_2].*"
func ParsePlace(s string) (mir.Place, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "_") {
		return mir.Place{}, fmt.Errorf("%w: place %q must start with a local like _1", ErrSyntax, s)
	}
	i := 1
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == 1 {
		return mir.Place{}, fmt.Errorf("%w: place %q: missing local number", ErrSyntax, s)
	}
	local, _ := strconv.Atoi(s[1:i])
	place := mir.LocalPlace(mir.Local(local))

	for i < len(s) {
		switch s[i] {
		case '.':
			i++
			if i < len(s) && s[i] == '*' {
				place = place.Project(mir.Deref{})
				i++
				continue
			}
			n, next, err := parseNumber(s, i)
			if err != nil {
				return mir.Place{}, err
			}
			place = place.Project(mir.Field{Index: n})
			i = next
		case '@':
			n, next, err := parseNumber(s, i+1)
			if err != nil {
				return mir.Place{}, err
			}
			place = place.Project(mir.Downcast{Variant: n})
			i = next
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return mir.Place{}, fmt.Errorf("%w: place %q: unclosed [", ErrSyntax, s)
			}
			inner := s[i+1 : i+end]
			if strings.HasPrefix(inner, "_") {
				n, err := strconv.Atoi(inner[1:])
				if err != nil {
					return mir.Place{}, fmt.Errorf("%w: place %q: bad index local %q", ErrSyntax, s, inner)
				}
				place = place.Project(mir.Index{Local: mir.Local(n)})
			} else {
				n, err := strconv.Atoi(inner)
				if err != nil {
					return mir.Place{}, fmt.Errorf("%w: place %q: bad index %q", ErrSyntax, s, inner)
				}
				place = place.Project(mir.ConstantIndex{Offset: n})
			}
			i += end + 1
		default:
			return mir.Place{}, fmt.Errorf("%w: place %q: unexpected %q", ErrSyntax, s, s[i])
		}
	}
	return place, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func parseNumber(s string, i int) (int, int, error) {
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == start {
		return 0, 0, fmt.Errorf("%w: place %q: expected number at offset %d", ErrSyntax, s, start)
	}
	n, _ := strconv.Atoi(s[start:i])
	return n, i, nil
}

// ParseOperand parses an operand such as "move _2", "copy _1.0" or "const -3"
func ParseOperand(s string) (mir.Operand, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "true":
		return mir.Constant{Value: 1}, nil
	case s == "false":
		return mir.Constant{Value: 0}, nil
	case strings.HasPrefix(s, "const "):
		v, err := strconv.ParseInt(strings.TrimSpace(s[len("const "):]), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: operand %q: bad constant", ErrSyntax, s)
		}
		return mir.Constant{Value: v}, nil
	case strings.HasPrefix(s, "move "):
		p, err := ParsePlace(s[len("move "):])
		if err != nil {
			return nil, err
		}
		return mir.Move{Place: p}, nil
	case strings.HasPrefix(s, "copy "):
		p, err := ParsePlace(s[len("copy "):])
		if err != nil {
			return nil, err
		}
		return mir.Copy{Place: p}, nil
	case s == "":
		return nil, fmt.Errorf("%w: empty operand", ErrSyntax)
	}
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return mir.Constant{Value: v}, nil
	}
	p, err := ParsePlace(s)
	if err != nil {
		return nil, err
	}
	return mir.Copy{Place: p}, nil
}

func parseOperands(ss []string) ([]mir.Operand, error) {
	ops := make([]mir.Operand, 0, len(ss))
	for _, s := range ss {
		op, err := ParseOperand(s)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

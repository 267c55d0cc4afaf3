// Package signature parses method-reference terms such as "Hash#[]=(key, value)"
// and renders them as readable HTML.
//
// The grammar is [Klass][#|.|::]method(args). Parsing produces a structured
// Signature; HTML renders it. Terms are expected to be HTML-escaped already, so
// entity references in the argument text are preserved as they are.
package signature

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind is the call kind named by the separator between class and method.
type Kind int

const (
	Function Kind = iota // no class qualifier
	Instance             // Klass#method
	Module               // Klass.method
	Constant             // Klass::method
)

// Separator returns the text that joins class and method for k.
func (k Kind) Separator() string {
	switch k {
	case Instance:
		return "#"
	case Module:
		return "."
	case Constant:
		return "::"
	}
	return ""
}

func (k Kind) String() string {
	switch k {
	case Instance:
		return "instance"
	case Module:
		return "module"
	case Constant:
		return "constant"
	}
	return "function"
}

// ErrIndexArity is matched by errors from index assignments with more than
// three comma-separated arguments.
var ErrIndexArity = errors.New("index assignment takes at most 3 arguments")

// ArityError reports a rejected []= argument list.
type ArityError struct {
	Args  string
	Parts int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("signature: %d arguments in %q: %s", e.Parts, e.Args, ErrIndexArity)
}

func (e *ArityError) Unwrap() error { return ErrIndexArity }

// Signature is a parsed method reference.
type Signature struct {
	Class  string
	Kind   Kind
	Method string

	// Args is the argument text with placeholders wrapped in <var>.
	Args string
	// Index and Value hold the bracket contents and assigned value of [] and []=.
	Index string
	Value string
	// Inner is the chained signature following "self".
	Inner *Signature
}

var (
	methodToken = regexp.MustCompile(`^\s*([^{(\s]+)`)
	qualified   = regexp.MustCompile(`^([A-Z]\w*(?:::[A-Z]\w*)*)(#|\.|::)(.+)$`)
	argToken    = regexp.MustCompile(`&?\w+;?`)
	entityRef   = regexp.MustCompile(`^&\w+;$`)
)

// Split separates the method token of term from its argument text. The token
// ends at the first "(", "{" or whitespace.
func Split(term string) (method, args string) {
	loc := methodToken.FindStringSubmatchIndex(term)
	if loc == nil {
		return "", term
	}
	return term[loc[2]:loc[3]], term[loc[1]:]
}

// Parse parses a whole term, e.g. "Array#each {|x| ... }".
func Parse(term string) (Signature, error) {
	return ParseParts(Split(term))
}

// ParseParts parses a method token and its argument text.
func ParseParts(method, args string) (Signature, error) {
	sig := Signature{Kind: Function, Method: method}
	if m := qualified.FindStringSubmatch(method); m != nil {
		sig.Class, sig.Kind, sig.Method = m[1], kindOf(m[2]), m[3]
	}
	if rest, ok := strings.CutPrefix(sig.Method, "self."); ok && rest != "" {
		sig.Method = "self"
		args = rest + args
	}

	switch sig.Method {
	case "self":
		inner, err := Parse(args)
		if err != nil {
			return Signature{}, err
		}
		sig.Inner = &inner
	case "[]":
		sig.Index = stripParens(strings.TrimSpace(wrapArgs(args)))
	case "[]=":
		packed := stripParens(strings.ReplaceAll(wrapArgs(args), " ", ""))
		parts := splitArgs(packed)
		switch len(parts) {
		case 0:
			sig.Value = "<var>val</var>"
		case 1:
			sig.Index, sig.Value = parts[0], "<var>val</var>"
		case 2:
			sig.Index, sig.Value = parts[0], parts[1]
		case 3:
			sig.Index, sig.Value = parts[0]+", "+parts[1], parts[2]
		default:
			return Signature{}, &ArityError{Args: args, Parts: len(parts)}
		}
	default:
		sig.Args = wrapArgs(args)
	}
	return sig, nil
}

func kindOf(sep string) Kind {
	switch sep {
	case "#":
		return Instance
	case ".":
		return Module
	case "::":
		return Constant
	}
	return Function
}

// wrapArgs wraps each bare word in <var>, leaving entity references alone.
func wrapArgs(args string) string {
	return argToken.ReplaceAllStringFunc(args, func(tok string) string {
		if entityRef.MatchString(tok) {
			return tok
		}
		return "<var>" + tok + "</var>"
	})
}

func stripParens(s string) string {
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		return s[1 : len(s)-1]
	}
	return s
}

// splitArgs splits on commas and drops trailing empty fields.
func splitArgs(s string) []string {
	parts := strings.Split(s, ",")
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

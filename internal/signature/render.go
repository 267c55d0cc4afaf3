package signature

// HTML renders s. The class and separator are omitted for plain functions.
func (s Signature) HTML() string {
	prefix := ""
	if s.Kind != Function {
		prefix = s.Class + s.Kind.Separator()
	}
	switch s.Method {
	case "self":
		inner := ""
		if s.Inner != nil {
			inner = s.Inner.HTML()
		}
		return prefix + "<var>self</var> " + inner
	case "[]":
		return prefix + "[" + s.Index + "]"
	case "[]=":
		return prefix + "[" + s.Index + "] = " + s.Value
	}
	return prefix + s.Method + s.Args
}

// Format parses term and renders it in one step.
func Format(term string) (string, error) {
	sig, err := Parse(term)
	if err != nil {
		return "", err
	}
	return sig.HTML(), nil
}

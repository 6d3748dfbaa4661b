package glbuild

import "strings"

// Scope is the body of one generated function. Every scope is called by one
// dispatched kernel. Scopes with greater Depth are defined earlier in source.
type Scope struct {
	Name  string
	Depth int
	Args  []Argument

	lines []string
	// bound maps nodes lowered in this scope to their generated names.
	bound map[NodeID]string
	// sampled maps cached and gradient nodes lowered in this scope to their texture.
	sampled map[NodeID]string
	indent  int
}

// Argument is a parameter of a scope function.
type Argument struct {
	Name   string
	Type   Type
	Output bool
}

func newScope(name string, depth int, args []Argument) *Scope {
	return &Scope{
		Name:    name,
		Depth:   depth,
		Args:    args,
		bound:   make(map[NodeID]string),
		sampled: make(map[NodeID]string),
		indent:  1,
	}
}

// Kernel returns the name of the kernel that dispatches the scope function.
func (s *Scope) Kernel() string { return "CS" + s.Name }

// Lines returns the statements emitted so far, indented.
func (s *Scope) Lines() []string { return s.lines }

// Bound returns the generated name of node id in the scope.
func (s *Scope) Bound(id NodeID) (string, bool) {
	name, ok := s.bound[id]
	return name, ok
}

func (s *Scope) bind(id NodeID, name string) { s.bound[id] = name }

func (s *Scope) addLine(line string) {
	s.lines = append(s.lines, strings.Repeat("\t", s.indent)+line)
}

// AppendFunction appends the scope rendered as a function definition.
func (s *Scope) AppendFunction(b []byte) []byte {
	b = append(b, "void "...)
	b = append(b, s.Name...)
	b = append(b, '(')
	for i, arg := range s.Args {
		if i > 0 {
			b = append(b, ", "...)
		}
		if arg.Output {
			b = append(b, "out "...)
		}
		b = append(b, arg.Type.String()...)
		b = append(b, ' ')
		b = append(b, arg.Name...)
	}
	b = append(b, ") {\n"...)
	for _, line := range s.lines {
		b = append(b, line...)
		b = append(b, '\n')
	}
	b = append(b, "}\n"...)
	return b
}

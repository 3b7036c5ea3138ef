package classify

import (
	"strconv"
	"strings"
)

// Flag is one flag occurrence on the command line.
type Flag struct {
	Name  string // canonical long name, or the spelling used if unknown
	Role  Role
	Value string
	// Explicit is set when a boolean flag was given a value, as in --web=false.
	Explicit bool
}

// Intent is the parsed form of one invocation of the wrapped tool.
// It is built once by Parse and not modified afterwards.
type Intent struct {
	Tool        string
	Family      Family
	Command     []string // subcommand path as typed, e.g. [pr new]
	Flags       []Flag
	Positionals []string
	Args        []string // argv after the tool name, verbatim
}

// Has reports whether a flag with the given role is on. Boolean flags
// given an explicit false value are off.
func (in Intent) Has(role Role) bool {
	on := false
	for _, f := range in.Flags {
		if f.Role != role {
			continue
		}
		on = true
		if f.Explicit {
			on, _ = strconv.ParseBool(f.Value)
		}
	}
	return on
}

// Value returns the last value given for role, the way repeated scalar
// flags resolve.
func (in Intent) Value(role Role) (string, bool) {
	val, ok := "", false
	for _, f := range in.Flags {
		if f.Role == role {
			val, ok = f.Value, true
		}
	}
	return val, ok
}

// Values returns every value given for role in order.
func (in Intent) Values(role Role) []string {
	var vals []string
	for _, f := range in.Flags {
		if f.Role == role {
			vals = append(vals, f.Value)
		}
	}
	return vals
}

// Parse turns argv (without the tool name) into an Intent, using the schema
// of the first family whose subcommand path matches.
func Parse(tool string, args []string) Intent {
	for _, s := range schemas {
		for _, path := range s.Paths {
			if in, ok := parseWith(s, path, args); ok {
				in.Tool = tool
				return in
			}
		}
	}
	in, _ := parseWith(generic, nil, args)
	in.Tool = tool
	return in
}

// parseWith parses args against one schema. Flags may appear anywhere,
// including between subcommand words. ok is false when the leading
// non-flag words do not spell path.
func parseWith(s *Schema, path []string, args []string) (Intent, bool) {
	in := Intent{
		Family: s.Family,
		Args:   append([]string(nil), args...),
	}
	matched := 0
	endOfFlags := false

	positional := func(word string) bool {
		if matched < len(path) {
			if word != path[matched] {
				return false
			}
			in.Command = append(in.Command, word)
			matched++
			return true
		}
		if len(path) == 0 && len(in.Positionals) == 0 && len(in.Command) == 0 {
			in.Command = append(in.Command, word)
			return true
		}
		in.Positionals = append(in.Positionals, word)
		return true
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case endOfFlags || arg == "-" || !strings.HasPrefix(arg, "-"):
			if !positional(arg) {
				return Intent{}, false
			}

		case arg == "--":
			endOfFlags = true

		case strings.HasPrefix(arg, "--"):
			name, value, hasValue := strings.Cut(arg[2:], "=")
			spec, known := s.long[name]
			if !known {
				in.Flags = append(in.Flags, Flag{Name: name, Value: value, Explicit: hasValue})
				continue
			}
			if spec.Arity == 0 {
				in.Flags = append(in.Flags, Flag{Name: spec.Long, Role: spec.Role, Value: value, Explicit: hasValue})
				continue
			}
			if !hasValue && i+1 < len(args) {
				i++
				value = args[i]
			}
			in.Flags = append(in.Flags, Flag{Name: spec.Long, Role: spec.Role, Value: value})

		default:
			// Shorthand cluster: -d, -dw, -tTitle, -X POST, -XPOST, -X=POST.
			short := arg[1:]
			for j := 0; j < len(short); j++ {
				letter := short[j : j+1]
				spec, known := s.short[letter]
				if !known {
					in.Flags = append(in.Flags, Flag{Name: letter})
					continue
				}
				if spec.Arity == 0 {
					if rest := short[j+1:]; strings.HasPrefix(rest, "=") {
						in.Flags = append(in.Flags, Flag{Name: spec.Long, Role: spec.Role, Value: rest[1:], Explicit: true})
						break
					}
					in.Flags = append(in.Flags, Flag{Name: spec.Long, Role: spec.Role})
					continue
				}
				value := strings.TrimPrefix(short[j+1:], "=")
				if j+1 == len(short) && i+1 < len(args) {
					i++
					value = args[i]
				}
				in.Flags = append(in.Flags, Flag{Name: spec.Long, Role: spec.Role, Value: value})
				break
			}
		}
	}

	if matched < len(path) {
		return Intent{}, false
	}
	return in, true
}

package classify

// Role is what a flag means for mutation detection and for the approval
// summary. Flags that matter for neither have RoleOther.
type Role int

const (
	RoleOther Role = iota
	RoleTitle
	RoleFill
	RoleBody
	RoleBodyFile
	RoleBase
	RoleHead
	RoleDraft
	RoleWeb
	RoleRepo
	RoleMethod
	RoleField
	RoleInput
)

// FlagSpec declares one flag of a command family.
type FlagSpec struct {
	Long  string // without leading dashes
	Short string // single letter, may be empty
	Arity int    // 0 for booleans, 1 for flags taking a value
	Role  Role
}

// Family identifies a command shape with its own flag schema.
type Family string

const (
	FamilyOther    Family = ""
	FamilyPRCreate Family = "pr create"
	FamilyAPI      Family = "api"
)

// Schema is the flag table for one family. Paths lists every subcommand
// path that reaches the family, including aliases.
type Schema struct {
	Family Family
	Paths  [][]string
	Flags  []FlagSpec

	long  map[string]FlagSpec
	short map[string]FlagSpec
}

// index builds the lookup maps. Schemas are package-level values built once.
func (s *Schema) index() *Schema {
	s.long = make(map[string]FlagSpec, len(s.Flags))
	s.short = make(map[string]FlagSpec, len(s.Flags))
	for _, f := range s.Flags {
		s.long[f.Long] = f
		if f.Short != "" {
			s.short[f.Short] = f
		}
	}
	return s
}

// schemas are the mutating command shapes gh-gate knows about. Every other
// command passes through untouched, so extending coverage means adding a
// schema here.
var schemas = []*Schema{
	(&Schema{
		Family: FamilyPRCreate,
		Paths:  [][]string{{"pr", "create"}, {"pr", "new"}},
		Flags: []FlagSpec{
			{Long: "title", Short: "t", Arity: 1, Role: RoleTitle},
			{Long: "body", Short: "b", Arity: 1, Role: RoleBody},
			{Long: "body-file", Short: "F", Arity: 1, Role: RoleBodyFile},
			{Long: "base", Short: "B", Arity: 1, Role: RoleBase},
			{Long: "head", Short: "H", Arity: 1, Role: RoleHead},
			{Long: "repo", Short: "R", Arity: 1, Role: RoleRepo},
			{Long: "draft", Short: "d", Arity: 0, Role: RoleDraft},
			{Long: "fill", Short: "f", Arity: 0, Role: RoleFill},
			{Long: "fill-first", Arity: 0, Role: RoleFill},
			{Long: "fill-verbose", Arity: 0, Role: RoleFill},
			{Long: "web", Short: "w", Arity: 0, Role: RoleWeb},
			{Long: "assignee", Short: "a", Arity: 1},
			{Long: "label", Short: "l", Arity: 1},
			{Long: "milestone", Short: "m", Arity: 1},
			{Long: "project", Short: "p", Arity: 1},
			{Long: "reviewer", Short: "r", Arity: 1},
			{Long: "recover", Arity: 1},
			{Long: "template", Short: "T", Arity: 1},
			{Long: "editor", Short: "e", Arity: 0},
			{Long: "dry-run", Arity: 0},
			{Long: "no-maintainer-edit", Arity: 0},
		},
	}).index(),
	(&Schema{
		Family: FamilyAPI,
		Paths:  [][]string{{"api"}},
		Flags: []FlagSpec{
			{Long: "method", Short: "X", Arity: 1, Role: RoleMethod},
			{Long: "field", Short: "F", Arity: 1, Role: RoleField},
			{Long: "raw-field", Short: "f", Arity: 1, Role: RoleField},
			{Long: "input", Arity: 1, Role: RoleInput},
			{Long: "header", Short: "H", Arity: 1},
			{Long: "jq", Short: "q", Arity: 1},
			{Long: "template", Short: "t", Arity: 1},
			{Long: "cache", Arity: 1},
			{Long: "preview", Short: "p", Arity: 1},
			{Long: "hostname", Arity: 1},
			{Long: "include", Short: "i", Arity: 0},
			{Long: "paginate", Arity: 0},
			{Long: "silent", Arity: 0},
			{Long: "slurp", Arity: 0},
			{Long: "verbose", Arity: 0},
			{Long: "web", Short: "w", Arity: 0, Role: RoleWeb},
		},
	}).index(),
}

// generic parses commands outside every known family. It knows no flags,
// so every flag is recorded as a boolean.
var generic = (&Schema{Family: FamilyOther}).index()

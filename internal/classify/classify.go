// Package classify decides whether an invocation of the wrapped tool is
// read-only, needs a human decision, or cannot be gated safely.
package classify

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned for invocations that need approval but cannot
// be described or intercepted, such as an interactive pull request form.
var ErrMalformed = errors.New("command cannot be gated")

// Kind is the outcome of classification.
type Kind int

const (
	Passthrough Kind = iota
	RequiresApproval
	Malformed
)

func (k Kind) String() string {
	switch k {
	case Passthrough:
		return "passthrough"
	case RequiresApproval:
		return "requires-approval"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Classification is the verdict for one Intent. Context is set only for
// RequiresApproval and Reason only for Malformed.
type Classification struct {
	Kind    Kind
	Context *ApprovalContext
	Reason  string
}

// Err returns the Malformed verdict as an error wrapping ErrMalformed,
// or nil for the other kinds.
func (c Classification) Err() error {
	if c.Kind != Malformed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMalformed, c.Reason)
}

// Policy holds the configurable parts of classification.
type Policy struct {
	// InferMethodFromFields treats api calls carrying field or input flags
	// as POST when no method is given.
	InferMethodFromFields bool
	// MutatingMethods are the HTTP methods that need approval.
	MutatingMethods []string
}

// DefaultPolicy mirrors how gh itself picks the api method.
func DefaultPolicy() Policy {
	return Policy{
		InferMethodFromFields: true,
		MutatingMethods:       []string{"POST", "PATCH", "PUT", "DELETE"},
	}
}

// Classifier applies a Policy to intents. It is a pure function of its
// input and safe for concurrent use.
type Classifier struct {
	policy   Policy
	mutating map[string]bool
}

// NewClassifier returns a Classifier for policy.
func NewClassifier(policy Policy) *Classifier {
	c := &Classifier{policy: policy, mutating: make(map[string]bool)}
	for _, m := range policy.MutatingMethods {
		c.mutating[strings.ToUpper(m)] = true
	}
	return c
}

// Classify returns the verdict for in.
func (c *Classifier) Classify(in Intent) Classification {
	// A browser handoff is completed by a human, whatever the method.
	if in.Family != FamilyOther && in.Has(RoleWeb) {
		return Classification{Kind: Passthrough}
	}
	switch in.Family {
	case FamilyPRCreate:
		return c.classifyPRCreate(in)
	case FamilyAPI:
		return c.classifyAPI(in)
	default:
		return Classification{Kind: Passthrough}
	}
}

func (c *Classifier) classifyPRCreate(in Intent) Classification {
	_, hasTitle := in.Value(RoleTitle)
	if !hasTitle && !in.Has(RoleFill) {
		return Classification{
			Kind:   Malformed,
			Reason: "pr create needs --title or --fill; the interactive form cannot be intercepted",
		}
	}
	ctx := pullRequestContext(in)
	return Classification{Kind: RequiresApproval, Context: &ctx}
}

func (c *Classifier) classifyAPI(in Intent) Classification {
	method := c.Method(in)
	if !c.mutating[method] {
		return Classification{Kind: Passthrough}
	}
	ctx := apiContext(in, method)
	return Classification{Kind: RequiresApproval, Context: &ctx}
}

// Method returns the HTTP method an api intent will use: the explicit
// method if given, else POST when the policy infers it from field or
// input flags, else GET.
func (c *Classifier) Method(in Intent) string {
	if m, ok := in.Value(RoleMethod); ok && m != "" {
		return strings.ToUpper(m)
	}
	if c.policy.InferMethodFromFields {
		if _, ok := in.Value(RoleField); ok {
			return "POST"
		}
		if _, ok := in.Value(RoleInput); ok {
			return "POST"
		}
	}
	return "GET"
}

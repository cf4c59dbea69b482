// Package registry holds the in-memory name->descriptor mapping that backs
// tool discovery, resources, and prompts.
package registry

import "context"

// TrustClass classifies how destructive a tool is. The gateway (package
// trust) consults this to decide whether a call needs elevation.
type TrustClass string

const (
	Safe        TrustClass = "SAFE"
	Mutating    TrustClass = "MUTATING"
	Destructive TrustClass = "DESTRUCTIVE"
	System      TrustClass = "SYSTEM"
)

// Handler is the uniform callable contract: keyword arguments in, a
// JSON-serializable mapping out.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Descriptor is the registry's unit of state for a callable tool.
type Descriptor struct {
	Name            string
	Description     string
	Category        string
	ParameterSchema map[string]any
	Handler         Handler
	TrustClass      TrustClass
	SourceModule    string

	// RequiresElevated forces a minimum ELEVATED trust level independent of
	// TrustClass and without requiring interactive confirmation. It exists
	// for tools like the module proxy's call_module_function, whose actual
	// destructiveness depends on the target being invoked: until a
	// per-target classification exists, every proxy invocation requires
	// ELEVATED.
	RequiresElevated bool
}

// ResourceDescriptor is the parallel, simpler variant for a readable MCP
// resource.
type ResourceDescriptor struct {
	URI             string
	Name            string
	MimeType        string
	ContentProvider func(ctx context.Context) ([]byte, error)
}

// PromptDescriptor is the parallel, simpler variant for a prompt template.
type PromptDescriptor struct {
	Name      string
	Arguments []string
	Template  func(args map[string]string) (string, error)
}

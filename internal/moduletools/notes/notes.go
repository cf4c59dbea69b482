// Package notes is a sample domain module: a tiny content-addressed note
// store. Its business logic is deliberately small; it exists as a second
// discovery target alongside sysinfo, and the only one with a DESTRUCTIVE
// tool, so the gateway's confirmation path has something real to gate.
package notes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/codomyrmex/mcp-core/internal/registry"
	"github.com/codomyrmex/mcp-core/internal/schema"
)

// ModulePath is this module's discovery namespace entry.
const ModulePath = "codomyrmex/notes_mcp_tools"

// putInput, digestInput describe this module's parameter shapes as Go
// structs, reflected into parameter schemas by schema.Generate rather than
// hand-written as map literals, so the schema and the handler's expected
// arguments cannot drift apart.
type putInput struct {
	Content string `json:"content" jsonschema:"required,description=Note content to store."`
}

type digestInput struct {
	Digest string `json:"digest" jsonschema:"required,description=Content digest identifying the note."`
}

func mustGenerate(inputType any) map[string]any {
	s, err := schema.Generate(inputType)
	if err != nil {
		panic(fmt.Sprintf("notes: generate schema: %v", err))
	}
	return s
}

// store is a process-wide, mutex-guarded content-addressed map. Nothing in
// the tool plane persists across restarts, and this sample module follows
// the same rule for its own content.
type store struct {
	mu    sync.RWMutex
	notes map[string]string
}

var defaultStore = &store{notes: make(map[string]string)}

func digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// RegisterTools enumerates this module's tagged callables.
func RegisterTools() ([]*registry.Descriptor, error) {
	return []*registry.Descriptor{
		{
			Name:            "codomyrmex.notes.put",
			Description:     "Store note content, keyed by its content digest.",
			Category:        "notes",
			TrustClass:      registry.Mutating,
			ParameterSchema: mustGenerate(putInput{}),
			Handler:         put,
		},
		{
			Name:            "codomyrmex.notes.get",
			Description:     "Retrieve note content by its digest.",
			Category:        "notes",
			TrustClass:      registry.Safe,
			ParameterSchema: mustGenerate(digestInput{}),
			Handler:         get,
		},
		{
			Name:            "codomyrmex.notes.delete",
			Description:     "Permanently remove a note by its digest.",
			Category:        "notes",
			TrustClass:      registry.Destructive,
			ParameterSchema: mustGenerate(digestInput{}),
			Handler:         delete_,
		},
	}, nil
}

func put(ctx context.Context, args map[string]any) (map[string]any, error) {
	content, _ := args["content"].(string)
	if content == "" {
		return nil, fmt.Errorf("content must not be empty")
	}
	key := digest(content)

	defaultStore.mu.Lock()
	defaultStore.notes[key] = content
	defaultStore.mu.Unlock()

	return map[string]any{"digest": key}, nil
}

func get(ctx context.Context, args map[string]any) (map[string]any, error) {
	key, _ := args["digest"].(string)

	defaultStore.mu.RLock()
	content, ok := defaultStore.notes[key]
	defaultStore.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no note with digest %q", key)
	}
	return map[string]any{"content": content}, nil
}

func delete_(ctx context.Context, args map[string]any) (map[string]any, error) {
	key, _ := args["digest"].(string)

	defaultStore.mu.Lock()
	_, existed := defaultStore.notes[key]
	delete(defaultStore.notes, key)
	defaultStore.mu.Unlock()

	return map[string]any{"deleted": existed}, nil
}

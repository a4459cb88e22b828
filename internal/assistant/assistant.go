// Package assistant defines the pluggable assistant contract and the
// registry that routes invocation commands to assistants.
//
// An assistant declares a name, an invocation command and a message
// handler; file and search handlers are optional. The registry is
// populated once at startup via Discover and is read-only afterwards,
// so lookups need no synchronization.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/oselz/docent/internal/log"
)

var (
	// ErrDuplicateCommand indicates two assistants claim the same
	// invocation command (case-insensitive).
	ErrDuplicateCommand = errors.New("duplicate assistant command")

	// ErrUnknownAssistant indicates a lookup for a name or command no
	// registered assistant claims.
	ErrUnknownAssistant = errors.New("unknown assistant")

	// ErrInvalidDescriptor indicates a descriptor missing a required
	// field (name, command, or message handler).
	ErrInvalidDescriptor = errors.New("invalid assistant descriptor")
)

// Context carries per-turn session information into assistant handlers.
type Context struct {
	SessionID    uuid.UUID
	UserID       string
	DocumentName string
}

// HandlerFunc handles one user message and returns the assistant's reply.
type HandlerFunc func(ctx context.Context, text string, actx Context) (string, error)

// FileHandlerFunc handles an uploaded file addressed to the assistant.
type FileHandlerFunc func(ctx context.Context, name, text string, actx Context) (string, error)

// SearchHandlerFunc handles a search query addressed to the assistant.
type SearchHandlerFunc func(ctx context.Context, query string, actx Context) (string, error)

// Descriptor is the capability contract one assistant exposes.
// Handle is required; HandleFile and HandleSearch are optional and nil
// when the assistant does not support them.
type Descriptor struct {
	Name        string
	Command     string
	Description string

	Handle       HandlerFunc
	HandleFile   FileHandlerFunc
	HandleSearch SearchHandlerFunc
}

func (d Descriptor) validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidDescriptor)
	}
	if d.Command == "" {
		return fmt.Errorf("%w: %q has no command", ErrInvalidDescriptor, d.Name)
	}
	if strings.ContainsAny(d.Command, " \t/") {
		return fmt.Errorf("%w: %q has malformed command %q", ErrInvalidDescriptor, d.Name, d.Command)
	}
	if d.Handle == nil {
		return fmt.Errorf("%w: %q has no message handler", ErrInvalidDescriptor, d.Name)
	}
	return nil
}

// Registry maps invocation commands to assistants. Register during
// startup only; Lookup and List are safe for concurrent use once
// registration is done.
type Registry struct {
	byCommand map[string]Descriptor
	ordered   []Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byCommand: make(map[string]Descriptor)}
}

// Register adds d to the registry. Commands are matched
// case-insensitively; a collision returns ErrDuplicateCommand.
func (r *Registry) Register(d Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}
	key := strings.ToLower(d.Command)
	if existing, ok := r.byCommand[key]; ok {
		return fmt.Errorf("%w: %q already claimed by %q", ErrDuplicateCommand, d.Command, existing.Name)
	}
	r.byCommand[key] = d
	r.ordered = append(r.ordered, d)
	return nil
}

// Lookup resolves an invocation command (without the leading slash),
// case-insensitively.
func (r *Registry) Lookup(command string) (Descriptor, bool) {
	d, ok := r.byCommand[strings.ToLower(command)]
	return d, ok
}

// LookupName resolves an assistant by its command or display name,
// case-insensitively. Used by the /assistant meta-command.
func (r *Registry) LookupName(name string) (Descriptor, error) {
	if d, ok := r.Lookup(name); ok {
		return d, nil
	}
	for _, d := range r.ordered {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownAssistant, name)
}

// List returns all assistants in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Factory builds one assistant's descriptor at startup.
type Factory func() (Descriptor, error)

// Discover builds a registry from the given factories. A factory that
// fails or returns a malformed descriptor is logged and skipped; startup
// continues with the remaining assistants.
func Discover(logger log.Logger, factories ...Factory) *Registry {
	if logger == nil {
		logger = log.NewNop()
	}
	registry := NewRegistry()
	for _, factory := range factories {
		d, err := factory()
		if err != nil {
			logger.Warn("skipping assistant: factory failed", "error", err)
			continue
		}
		if err := registry.Register(d); err != nil {
			logger.Warn("skipping assistant", "name", d.Name, "command", d.Command, "error", err)
			continue
		}
		logger.Info("registered assistant", "name", d.Name, "command", "/"+d.Command)
	}
	return registry
}

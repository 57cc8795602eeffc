package engine

import "context"

// Arity is the static tag declaring what a command's action receives. It is
// fixed at registration time; the dispatcher never inspects signatures.
type Arity int

const (
	// ArityNone runs with no session access.
	ArityNone Arity = iota
	// AritySession runs against the user's session.
	AritySession
	// AritySessionText runs against the session with one free-text argument.
	AritySessionText
)

// Command binds a name to one action plus the static metadata the dispatcher
// needs: arity, whether the state is internal (a hidden wizard step) and
// whether resolving it pushes the state onto the navigation stack.
type Command struct {
	Name        string
	Description string
	Internal    bool
	Navigable   bool

	arity   Arity
	runNone func(ctx context.Context) error
	run     func(ctx context.Context, s *Session) error
	runText func(ctx context.Context, s *Session, text string) error
}

// Option configures a command at construction.
type Option func(*Command)

// AsInternal hides the command from help and from navigation history.
func AsInternal() Option {
	return func(c *Command) { c.Internal = true }
}

// AsNavigable makes dispatching the command push its name onto the stack.
func AsNavigable() Option {
	return func(c *Command) { c.Navigable = true }
}

// NewCommand creates a zero-argument command.
func NewCommand(name, description string, fn func(ctx context.Context) error, opts ...Option) *Command {
	c := &Command{Name: name, Description: description, arity: ArityNone, runNone: fn}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewSessionCommand creates a command acting on the user's session.
func NewSessionCommand(name, description string, fn func(ctx context.Context, s *Session) error, opts ...Option) *Command {
	c := &Command{Name: name, Description: description, arity: AritySession, run: fn}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewTextCommand creates a command that also receives the raw inbound text.
// Wizard steps are text commands.
func NewTextCommand(name, description string, fn func(ctx context.Context, s *Session, text string) error, opts ...Option) *Command {
	c := &Command{Name: name, Description: description, arity: AritySessionText, runText: fn}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Arity returns the command's static arity tag.
func (c *Command) Arity() Arity { return c.arity }

// Invoke runs the command's action according to its arity.
func (c *Command) Invoke(ctx context.Context, s *Session, text string) error {
	switch c.arity {
	case ArityNone:
		return c.runNone(ctx)
	case AritySession:
		return c.run(ctx, s)
	default:
		return c.runText(ctx, s, text)
	}
}

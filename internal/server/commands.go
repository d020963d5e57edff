package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/migvista/migvista/internal/alembic"
	"github.com/migvista/migvista/internal/rewrite"
)

// Command is an inbound request from the visualization. Destructive
// commands (downgrade, reparent) are rejected unless the client has
// confirmed them with the user first.
type Command struct {
	Command   string `json:"command"`
	Revision  string `json:"revision"`
	NewParent string `json:"newParent,omitempty"`
	Confirmed bool   `json:"confirmed,omitempty"`
}

const (
	CommandOpen      = "open"
	CommandUpgrade   = "upgrade"
	CommandDowngrade = "downgrade"
	CommandStamp     = "stamp"
	CommandReparent  = "reparent"
)

// dispatchCommand executes one inbound command. Commands are
// fire-and-forget: failures are pushed as error messages, and every
// completion triggers a fresh refresh so clients never act on a stale
// graph after a command.
func (s *Server) dispatchCommand(cmd Command) {
	var err error
	switch cmd.Command {
	case CommandOpen:
		err = s.openScript(cmd.Revision)
	case CommandUpgrade:
		err = s.runMigration(cmd, s.commander.Upgrade)
	case CommandDowngrade:
		err = s.runMigration(cmd, s.commander.Downgrade)
	case CommandStamp:
		err = s.runMigration(cmd, s.commander.Stamp)
	case CommandReparent:
		err = s.reparent(cmd)
	default:
		err = fmt.Errorf("unknown command: %q", cmd.Command)
	}

	if err != nil {
		log.Printf("Command %s failed: %v", cmd.Command, err)
		s.broadcastUpdate(MessageTypeError, err.Error())
	}
	s.Refresh()
}

// openScript resolves a revision to its migration script and pushes the
// path back so the client can open it.
func (s *Server) openScript(revision string) error {
	path, err := s.project.ScriptForRevision(revision)
	if err != nil {
		return err
	}
	s.broadcastUpdate(MessageTypeScript, map[string]string{
		"revision": revision,
		"path":     path,
	})
	return nil
}

func (s *Server) runMigration(cmd Command, op func(ctx context.Context, revision string) error) error {
	if isDestructive(cmd.Command) && !cmd.Confirmed {
		return fmt.Errorf("%s %s requires confirmation: it cannot be undone automatically", cmd.Command, cmd.Revision)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	return op(s.ctx, cmd.Revision)
}

func isDestructive(command string) bool {
	return command == CommandDowngrade || command == CommandReparent
}

// reparent rewrites the target revision's parent edge in its migration
// script. The planner itself trusts its inputs, so everything it does
// not check happens here: the target and new parent must exist in the
// current graph (or the new parent must be the root sentinel), the
// target's script must be resolvable, and the client must have
// confirmed the action.
func (s *Server) reparent(cmd Command) error {
	if !cmd.Confirmed {
		return fmt.Errorf("reparent %s requires confirmation: it rewrites migration history", cmd.Revision)
	}

	g := s.Graph()
	if g == nil {
		return errors.New("no revision graph built yet")
	}
	if !g.Contains(cmd.Revision) {
		return fmt.Errorf("unknown revision: %s", cmd.Revision)
	}
	if cmd.NewParent != rewrite.Base && !g.Contains(cmd.NewParent) {
		return fmt.Errorf("unknown parent revision: %s", cmd.NewParent)
	}

	path, err := s.project.ScriptForRevision(cmd.Revision)
	if err != nil {
		if errors.Is(err, alembic.ErrScriptNotFound) {
			return fmt.Errorf("cannot modify dependency: %w", err)
		}
		return err
	}

	// Mutations are serialized against refreshes and each other; the
	// post-command refresh then rebuilds from the rewritten script.
	s.opMu.Lock()
	defer s.opMu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	plan := rewrite.NewPlan(cmd.Revision, cmd.NewParent)
	out, err := plan.Apply(string(data))
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(out), info.Mode()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Printf("Rewrote parent of %s -> %s", alembic.ShortID(cmd.Revision), describeParent(cmd.NewParent))
	return nil
}

func describeParent(newParent string) string {
	if newParent == rewrite.Base {
		return "<base>"
	}
	return alembic.ShortID(newParent)
}

package commands

import (
	"fmt"

	"github.com/leapstack-labs/scanlens/internal/state"
)

// recordSession persists a finished capture session in the state
// database.
func recordSession(rt *Runtime, name string, fragments, failures int) error {
	if err := ensureStateDir(rt.Cfg.StatePath); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	store := state.NewStore()
	if err := store.Open(rt.Cfg.StatePath); err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer func() { _ = store.Close() }()

	sess, err := store.CreateSession(name)
	if err != nil {
		return err
	}
	if err := store.FinishSession(sess.ID, fragments, failures); err != nil {
		return err
	}

	rt.Logger.Debug("recorded capture session",
		"session", sess.ID, "name", name,
		"fragments", fragments, "failures", failures)
	return nil
}

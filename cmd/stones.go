package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/dnd"
	"github.com/desertthunder/bowlstone/internal/formatter"
	"github.com/desertthunder/bowlstone/internal/identity"
	"github.com/desertthunder/bowlstone/internal/persist"
	"github.com/desertthunder/bowlstone/internal/reflection"
	"github.com/desertthunder/bowlstone/internal/session"
	"github.com/desertthunder/bowlstone/internal/shared"
)

// workspace is one terminal session over the stored board.
type workspace struct {
	env    *env
	hub    *session.Hub
	ctrl   *dnd.Controller
	saver  *persist.AsyncSaver
	unbind []func()
}

// workspace resolves the tier from the stored identity and pro flag and loads the board for it.
func (r *Runner) workspace(ctx context.Context, guest bool) (*workspace, error) {
	e, err := r.open(ctx)
	if err != nil {
		return nil, err
	}

	hub := session.NewHub(r.config.Owner.Email, access.Signals{
		GuestFlag: guest,
		ProFlag:   e.adapter.ProFlag(ctx),
	})
	ws := &workspace{env: e, hub: hub}
	ws.unbind = append(ws.unbind, identity.Bind(e.identity, hub))

	sc := hub.Current()
	ws.saver = persist.NewAsyncSaver(e.adapter, r.config.Storage.SaveRate, r.logger)
	ws.ctrl = dnd.New(e.adapter.Load(ctx, sc.Tier), sc, dnd.Options{
		Saver:  ws.saver,
		Loader: e.adapter,
		Logger: r.logger,
	})
	ws.unbind = append(ws.unbind, hub.Subscribe(ws.ctrl.SetContext))

	r.logger.Debug("workspace ready", "tier", sc.Tier)
	return ws, nil
}

// close stops following the identity and writes the last board.
func (ws *workspace) close() error {
	for _, fn := range ws.unbind {
		fn()
	}
	return ws.saver.Close()
}

func (ws *workspace) hasStone(id string) bool {
	return ws.ctrl.Board().IndexOf(id) >= 0
}

// withWorkspace runs fn over a workspace and closes it afterwards.
func (r *Runner) withWorkspace(ctx context.Context, cmd *cli.Command, fn func(*workspace) error) error {
	ws, err := r.workspace(ctx, cmd.Bool("guest"))
	if err != nil {
		return err
	}

	err = fn(ws)
	if cerr := ws.close(); cerr != nil {
		r.logger.Warn("failed to save board", "error", cerr)
	}
	return err
}

// noticeError turns a refused operation into a command error.
func noticeError(n *shared.Notice) error {
	return fmt.Errorf("%w: %s", shared.ErrInvalidInput, n)
}

// StonesList prints the bowl and the stones with their IDs.
func (r *Runner) StonesList(ctx context.Context, cmd *cli.Command) error {
	return r.withWorkspace(ctx, cmd, func(ws *workspace) error {
		b := ws.ctrl.Board()
		tier := ws.hub.Current().Tier

		if cmd.Bool("json") {
			return r.writeJSON(formatter.NewExport(b, tier), true)
		}

		r.writePlainHeader(fmt.Sprintf("Bowl and Stone (%s)", tier))
		if b.Bowl != nil {
			r.writePlain("Bowl:  %s  [%s]\n\n", b.Bowl.Text, b.Bowl.ID)
		} else {
			r.writePlain("Bowl:  (empty)\n\n")
		}

		if len(b.Stones) == 0 {
			r.writePlain("No stones.\n")
		}
		for i, t := range b.Stones {
			r.writePlain("%2d. %s  [%s]\n", i+1, t.Text, t.ID)
		}

		if limit, bounded := tier.Capacity(); bounded {
			r.writePlainln("%d of %d stones used.", b.Load(), limit)
		}
		return nil
	})
}

// StonesAdd appends a stone.
func (r *Runner) StonesAdd(ctx context.Context, cmd *cli.Command) error {
	text := strings.TrimSpace(cmd.StringArg("text"))
	if text == "" {
		return fmt.Errorf("%w: stone text", shared.ErrMissingArgument)
	}

	return r.withWorkspace(ctx, cmd, func(ws *workspace) error {
		out := ws.ctrl.Add(text)
		if out.Notice != nil {
			return noticeError(out.Notice)
		}

		stones := ws.ctrl.Board().Stones
		added := stones[len(stones)-1]
		r.writePlain("✓ Added %q [%s]\n", added.Text, added.ID)
		return r.guestNote(ws)
	})
}

// StonesMove moves a stone to just before another.
func (r *Runner) StonesMove(ctx context.Context, cmd *cli.Command) error {
	id, before := cmd.StringArg("id"), cmd.String("before")
	if id == "" {
		return fmt.Errorf("%w: stone id", shared.ErrMissingArgument)
	}

	return r.withWorkspace(ctx, cmd, func(ws *workspace) error {
		for _, want := range []string{id, before} {
			if !ws.hasStone(want) {
				return fmt.Errorf("%w: stone %s", shared.ErrNotFound, want)
			}
		}

		out := ws.ctrl.Drop(dnd.Gesture{ActiveID: id, Over: dnd.OnTask(before)})
		if !out.Changed {
			return r.writePlain("Nothing to move.\n")
		}
		r.writePlain("✓ Moved %s before %s\n", id, before)
		return r.guestNote(ws)
	})
}

// StonesFocus puts a stone in the bowl. An occupied bowl is refused; swap replaces it.
func (r *Runner) StonesFocus(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: stone id", shared.ErrMissingArgument)
	}

	return r.withWorkspace(ctx, cmd, func(ws *workspace) error {
		if !ws.hasStone(id) {
			return fmt.Errorf("%w: stone %s", shared.ErrNotFound, id)
		}
		if ws.ctrl.SlotDisabled() {
			return fmt.Errorf("%w: the bowl is occupied, use 'bowl stones swap %s'", shared.ErrInvalidArgument, id)
		}

		ws.ctrl.Drop(dnd.Gesture{ActiveID: id, Over: dnd.Slot()})
		r.writePlain("✓ In the bowl: %s\n", ws.ctrl.Board().Bowl.Text)
		return r.guestNote(ws)
	})
}

// StonesSwap puts a stone in the bowl and returns the previous bowl task to the end of the list.
func (r *Runner) StonesSwap(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: stone id", shared.ErrMissingArgument)
	}

	return r.withWorkspace(ctx, cmd, func(ws *workspace) error {
		if !ws.hasStone(id) {
			return fmt.Errorf("%w: stone %s", shared.ErrNotFound, id)
		}

		ws.ctrl.Swap(id)
		r.writePlain("✓ In the bowl: %s\n", ws.ctrl.Board().Bowl.Text)
		return r.guestNote(ws)
	})
}

// StonesDone completes the bowl task.
func (r *Runner) StonesDone(ctx context.Context, cmd *cli.Command) error {
	return r.withWorkspace(ctx, cmd, func(ws *workspace) error {
		bowl := ws.ctrl.Board().Bowl
		if !ws.ctrl.Complete().Changed {
			return r.writePlain("The bowl is empty.\n")
		}
		r.writePlain("✓ Done: %s\n", bowl.Text)
		return r.guestNote(ws)
	})
}

// Export writes the board in the requested format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	return r.withWorkspace(ctx, cmd, func(ws *workspace) error {
		export := formatter.NewExport(ws.ctrl.Board(), ws.hub.Current().Tier)

		if cmd.Bool("stdout") {
			data, err := formatter.Render(export, f)
			if err != nil {
				return err
			}
			return r.writePlain("%s", data)
		}

		path, err := formatter.WriteExport(export, f, cmd.String("output"))
		if err != nil {
			return err
		}
		r.logger.Info("board exported", "format", f, "path", path)
		return r.writePlain("✓ Exported to %s\n", path)
	})
}

// Reflect prints a reflection, falling back to the fixed line when the generator fails.
func (r *Runner) Reflect(ctx context.Context, cmd *cli.Command) error {
	ref := reflection.Daily(ctx, r.generator(ctx), r.config.Reflection.TimeoutDuration())
	r.logger.Debug("reflection", "generated", ref.Generated)
	return r.writePlain("%s\n", ref.Text)
}

func (r *Runner) guestNote(ws *workspace) error {
	if ws.hub.Current().Tier.Persists() {
		return nil
	}
	return r.writePlain("(guest session: changes are not saved)\n")
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}


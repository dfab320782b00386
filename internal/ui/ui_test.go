package ui

import (
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/dnd"
	"github.com/desertthunder/bowlstone/internal/models"
	"github.com/desertthunder/bowlstone/internal/onboarding"
	"github.com/desertthunder/bowlstone/internal/persist"
	"github.com/desertthunder/bowlstone/internal/reflection"
	"github.com/desertthunder/bowlstone/internal/session"
	"github.com/desertthunder/bowlstone/internal/shared"
	"github.com/desertthunder/bowlstone/internal/storage"
	tu "github.com/desertthunder/bowlstone/internal/testing"
)

type fixture struct {
	model   *Model
	saver   *tu.RecordingSaver
	durable *storage.Memory
}

func setup(t *testing.T, signals access.Signals, board models.Board) fixture {
	t.Helper()
	logger := shared.NewLogger(io.Discard)
	saver := &tu.RecordingSaver{}
	durable := storage.NewMemory()

	ctrl := dnd.New(board, session.Resolve(signals, ""), dnd.Options{Saver: saver, Logger: logger})
	m := NewModel(context.Background(), Options{
		Controller:  ctrl,
		Gate:        onboarding.NewGate(durable, storage.NewMemory(), logger),
		Reflections: &tu.StubGenerator{Text: "still water"},
		HelpStyle:   "notty",
		Logger:      logger,
	})
	return fixture{model: m, saver: saver, durable: durable}
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd = m.Update(msg)
	}
	return cmd
}

func ids(tasks []models.Task) string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return strings.Join(out, ",")
}

func TestModel_Board(t *testing.T) {
	t.Run("pick up and drop before another stone", func(t *testing.T) {
		f := setup(t, access.Signals{}, models.SeedBoard())
		press(f.model, "j", "j", "j", "space", "k", "k", "k", "space")

		if got := ids(f.model.ctrl.Board().Stones); got != "4,1,2,3,5" {
			t.Errorf("unexpected order %s", got)
		}
		if len(f.saver.Saves()) != 1 {
			t.Errorf("expected one save, got %d", len(f.saver.Saves()))
		}
	})

	t.Run("drop on itself changes nothing", func(t *testing.T) {
		f := setup(t, access.Signals{}, models.SeedBoard())
		press(f.model, "space", "space")
		if len(f.saver.Saves()) != 0 {
			t.Error("expected no save")
		}
	})

	t.Run("esc cancels the gesture", func(t *testing.T) {
		f := setup(t, access.Signals{}, models.SeedBoard())
		press(f.model, "space", "j", "esc", "space")
		if f.model.held != "2" {
			t.Errorf("expected a fresh pick up of 2, got %q", f.model.held)
		}
		if len(f.saver.Saves()) != 0 {
			t.Error("expected no save")
		}
	})

	t.Run("b focuses and switches to the focus view", func(t *testing.T) {
		f := setup(t, access.Signals{}, models.SeedBoard())
		press(f.model, "j", "b")

		b := f.model.ctrl.Board()
		if b.Bowl == nil || b.Bowl.ID != "2" {
			t.Fatalf("expected 2 in the bowl, got %+v", b.Bowl)
		}
		if f.model.view != FocusView {
			t.Errorf("expected focus view, got %v", f.model.view)
		}
		if !f.model.ctrl.SlotDisabled() {
			t.Error("expected the bowl to be disabled in focus mode")
		}
		if !strings.Contains(f.model.View(), "Prepare presentation for tomorrow") {
			t.Error("focus view should show the bowl task")
		}

		press(f.model, "d")
		if f.model.ctrl.Board().Bowl != nil || f.model.view != BoardView {
			t.Errorf("expected empty bowl and board view after done")
		}
	})

	t.Run("s swaps into the bowl", func(t *testing.T) {
		board := models.Board{Stones: models.SeedStones()[:2], Bowl: &models.Task{ID: "9", Text: "focus"}}
		f := setup(t, access.Signals{}, board)
		if f.model.view != FocusView {
			t.Fatalf("expected focus view for an occupied bowl")
		}
		press(f.model, "d")
		press(f.model, "s")
		if b := f.model.ctrl.Board(); b.Bowl == nil || b.Bowl.ID != "1" {
			t.Errorf("expected 1 in the bowl, got %+v", b.Bowl)
		}
	})

	t.Run("cursor stays on the list", func(t *testing.T) {
		f := setup(t, access.Signals{}, models.SeedBoard())
		press(f.model, "k", "k")
		if f.model.cursor != 0 {
			t.Errorf("expected cursor 0, got %d", f.model.cursor)
		}
		press(f.model, "j", "j", "j", "j", "j", "j", "j")
		if f.model.cursor != 4 {
			t.Errorf("expected cursor 4, got %d", f.model.cursor)
		}
	})

	t.Run("quit", func(t *testing.T) {
		f := setup(t, access.Signals{}, models.SeedBoard())
		if cmd := press(f.model, "q"); cmd == nil {
			t.Error("expected a quit command")
		}
	})
}

func TestModel_Add(t *testing.T) {
	t.Run("enter adds the typed stone", func(t *testing.T) {
		f := setup(t, access.Signals{}, models.SeedBoard())
		press(f.model, "a")
		if f.model.view != AddView {
			t.Fatalf("expected add view, got %v", f.model.view)
		}
		press(f.model, "water plants", "enter")

		stones := f.model.ctrl.Board().Stones
		if len(stones) != 6 || stones[5].Text != "water plants" {
			t.Errorf("unexpected stones %+v", stones)
		}
		if f.model.view != BoardView {
			t.Errorf("expected board view, got %v", f.model.view)
		}
	})

	t.Run("esc abandons the input", func(t *testing.T) {
		f := setup(t, access.Signals{}, models.SeedBoard())
		press(f.model, "a", "draft", "esc")
		if len(f.model.ctrl.Board().Stones) != 5 {
			t.Error("expected no new stone")
		}
	})

	t.Run("guest limit shows a notice", func(t *testing.T) {
		f := setup(t, access.Signals{GuestFlag: true}, models.Board{Stones: models.SeedStones()[:2]})
		if !strings.Contains(f.model.View(), dnd.GuestLimitNotice.Description) {
			t.Error("expected the limit hint on the board")
		}

		cmd := press(f.model, "a", "third", "enter")
		if f.model.notice == nil || f.model.notice.Title != dnd.GuestLimitNotice.Title {
			t.Fatalf("expected guest limit notice, got %v", f.model.notice)
		}
		if cmd == nil {
			t.Fatal("expected a command to clear the notice")
		}

		f.model.Update(noticeExpiredMsg(f.model.noticeSeq))
		if f.model.notice != nil {
			t.Error("expected the notice to clear")
		}
	})
}

func TestModel_Help(t *testing.T) {
	t.Run("first run opens help and y hides it for good", func(t *testing.T) {
		f := setup(t, access.Signals{}, models.SeedBoard())
		f.model.Init()
		if f.model.view != HelpView {
			t.Fatalf("expected help view, got %v", f.model.view)
		}
		if !strings.Contains(f.model.View(), onboarding.HelpTitle) {
			t.Error("expected the help title")
		}

		press(f.model, "y")
		if f.model.view != BoardView {
			t.Errorf("expected board view, got %v", f.model.view)
		}
		raw, ok, _ := f.durable.Get(context.Background(), persist.KeyHelpSeen)
		if !ok || raw != "true" {
			t.Errorf("expected help flag to be stored, got %q", raw)
		}
	})

	t.Run("guests cannot hide help for good", func(t *testing.T) {
		f := setup(t, access.Signals{GuestFlag: true}, models.Board{})
		f.model.Init()
		press(f.model, "y")
		if f.model.view != HelpView {
			t.Errorf("expected help to stay open, got %v", f.model.view)
		}
		press(f.model, "esc")
		if f.model.view != BoardView {
			t.Errorf("expected board view, got %v", f.model.view)
		}
	})

	t.Run("? toggles help from the board", func(t *testing.T) {
		f := setup(t, access.Signals{}, models.SeedBoard())
		press(f.model, "?")
		if f.model.view != HelpView {
			t.Fatalf("expected help view")
		}
		press(f.model, "?")
		if f.model.view != BoardView {
			t.Errorf("expected board view, got %v", f.model.view)
		}
	})
}

func TestModel_Messages(t *testing.T) {
	t.Run("reflection arrives asynchronously", func(t *testing.T) {
		f := setup(t, access.Signals{}, models.Board{Bowl: &models.Task{ID: "1", Text: "focus"}})
		cmd := f.model.fetchReflection()
		if cmd == nil {
			t.Fatal("expected a fetch command")
		}
		if strings.Contains(f.model.View(), "still water") {
			t.Error("reflection should not render before it arrives")
		}

		f.model.Update(cmd())
		if !strings.Contains(f.model.View(), "still water") {
			t.Error("expected the reflection in the focus view")
		}
	})

	t.Run("fallback reflection", func(t *testing.T) {
		f := setup(t, access.Signals{}, models.Board{Bowl: &models.Task{ID: "1", Text: "focus"}})
		f.model.Update(reflectionFetchedMsg(reflection.Reflection{Text: reflection.Fallback}))
		if !strings.Contains(f.model.View(), "journey of a thousand miles") {
			t.Error("expected the fallback reflection")
		}
	})

	t.Run("session change lifts the guest limit", func(t *testing.T) {
		f := setup(t, access.Signals{GuestFlag: true}, models.Board{Stones: models.SeedStones()[:2]})
		f.model.Update(SessionChangedMsg(session.Resolve(access.Signals{GuestFlag: true, ProFlag: true}, "")))

		if f.model.ctrl.LimitReached() {
			t.Error("expected no limit for guest pro")
		}
		press(f.model, "a", "third", "enter")
		if len(f.model.ctrl.Board().Stones) != 3 {
			t.Errorf("expected 3 stones, got %d", len(f.model.ctrl.Board().Stones))
		}
	})

	t.Run("window size", func(t *testing.T) {
		f := setup(t, access.Signals{}, models.SeedBoard())
		f.model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
		if f.model.width != 120 || f.model.height != 40 {
			t.Errorf("unexpected size %dx%d", f.model.width, f.model.height)
		}
		if !strings.Contains(f.model.View(), "Respond to important emails") {
			t.Error("expected stones in the board view")
		}
	})
}

package chat

import (
	"fmt"
	"strconv"
	"strings"
)

// Game is the slice of orchestrator behavior a command handler needs. It is
// defined here, not in internal/orchestrator, so chat never imports
// orchestrator (orchestrator imports chat and satisfies this interface).
type Game interface {
	ResetHero(playerID uint64) error
	PlayerName(playerID uint64) (string, bool)
	PlayerIDByName(name string) (uint64, bool)
	WarpPlayer(playerID uint64, mapID string) error
}

// Context is everything a Handler needs for one invocation.
type Context struct {
	Args     []string
	PlayerID uint64
	Game     Game
}

// Handler executes one command invocation and returns the chat reply to
// route back (spec.md §4.7); a nil reply with a nil error means "no
// response needed".
type Handler func(ctx Context) (*Request, error)

// Command is one entry in the static command table (spec.md §4.7). Commands
// with a nil Handler are expected to be handled client-side (help, clear,
// disconnect, reply, ...); if one somehow reaches Dispatch it yields an
// error response.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Handler     Handler
}

// Table is the static, built-once command table.
type Table struct {
	commands []Command
	byName   map[string]*Command
}

// NewTable builds the command table spec.md §4.7 describes: reset, whisper,
// warp implemented server-side; help/clear/disconnect/reply left to the
// client (no handler, so Dispatch reports an error if invoked anyway).
func NewTable() *Table {
	t := &Table{}
	t.add(Command{Name: "help", Description: "list available commands"})
	t.add(Command{Name: "clear", Description: "clear the local chat log"})
	t.add(Command{Name: "disconnect", Description: "leave the game"})
	t.add(Command{Name: "reply", Aliases: []string{"r"}, Description: "reply to the last whisper"})
	t.add(Command{
		Name:        "reset",
		Description: "return to the spawn area and clear downed/victory state",
		Usage:       "/reset",
		Handler:     handleReset,
	})
	t.add(Command{
		Name:        "whisper",
		Aliases:     []string{"w", "tell"},
		Description: "send a private message to another player",
		Usage:       "/whisper <name|@id> <message...>",
		Handler:     handleWhisper,
	})
	t.add(Command{
		Name:        "warp",
		Description: "teleport to another map's start area",
		Usage:       "/warp <map_id>",
		Handler:     handleWarp,
	})
	return t
}

func (t *Table) add(c Command) {
	t.commands = append(t.commands, c)
	if t.byName == nil {
		t.byName = make(map[string]*Command)
	}
	stored := &t.commands[len(t.commands)-1]
	t.byName[c.Name] = stored
	for _, alias := range c.Aliases {
		t.byName[alias] = stored
	}
}

// Lookup lowercases name and finds the command registered under that name
// or alias in the table's name map.
func (t *Table) Lookup(name string) (*Command, bool) {
	c, ok := t.byName[strings.ToLower(name)]
	return c, ok
}

// All returns every registered command, for a client-side help listing.
func (t *Table) All() []Command {
	return t.commands
}

// Dispatch tokenizes a slash-command line on whitespace, looks the command
// up, and invokes its handler (spec.md §4.4). The leading "/" must already
// be stripped by the caller.
func (t *Table) Dispatch(line string, playerID uint64, game Game) (*Request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("chat: empty command")
	}
	cmd, ok := t.Lookup(fields[0])
	if !ok {
		return nil, fmt.Errorf("chat: unknown command %q", fields[0])
	}
	if cmd.Handler == nil {
		return nil, fmt.Errorf("chat: command %q has no server handler", cmd.Name)
	}
	return cmd.Handler(Context{Args: fields[1:], PlayerID: playerID, Game: game})
}

func handleReset(ctx Context) (*Request, error) {
	if err := ctx.Game.ResetHero(ctx.PlayerID); err != nil {
		return nil, err
	}
	r := ResponseTo(ctx.PlayerID, "you have been reset to the spawn area")
	return &r, nil
}

func handleWhisper(ctx Context) (*Request, error) {
	if len(ctx.Args) < 2 {
		return nil, fmt.Errorf("chat: usage: /whisper <name|@id> <message...>")
	}
	targetSpec := ctx.Args[0]
	message := strings.Join(ctx.Args[1:], " ")

	var targetID uint64
	if strings.HasPrefix(targetSpec, "@") {
		id, err := strconv.ParseUint(targetSpec[1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chat: invalid player id %q", targetSpec)
		}
		targetID = id
		if _, ok := ctx.Game.PlayerName(targetID); !ok {
			return nil, fmt.Errorf("chat: no player with id %d", targetID)
		}
	} else {
		id, ok := ctx.Game.PlayerIDByName(targetSpec)
		if !ok {
			return nil, fmt.Errorf("chat: no player named %q", targetSpec)
		}
		targetID = id
	}
	r := WhisperTo(ctx.PlayerID, targetID, message)
	return &r, nil
}

func handleWarp(ctx Context) (*Request, error) {
	if len(ctx.Args) != 1 {
		return nil, fmt.Errorf("chat: usage: /warp <map_id>")
	}
	if err := ctx.Game.WarpPlayer(ctx.PlayerID, ctx.Args[0]); err != nil {
		return nil, err
	}
	return nil, nil
}

package state

import (
	"fmt"
	"strings"
)

type CommandType string

const (
	CmdLook      CommandType = "look"
	CmdInventory CommandType = "inventory"
	CmdClues     CommandType = "clues"
	CmdLore      CommandType = "lore"
	CmdPeople    CommandType = "people"
	CmdNone      CommandType = "" // No command, used for fallback
)

var knownCommands = map[string]CommandType{
	"look":      CmdLook,
	"location":  CmdLook,
	"l":         CmdLook,
	"inventory": CmdInventory,
	"i":         CmdInventory,
	"clues":     CmdClues,
	"notes":     CmdClues,
	"lore":      CmdLore,
	"people":    CmdPeople,
	"who":       CmdPeople,
}

// ParseCommand recognises a bare shortcut word. Anything else is CmdNone.
func ParseCommand(input string) CommandType {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if cmd, ok := knownCommands[trimmed]; ok {
		return cmd
	}
	return CmdNone
}

// CommandResult is an early evaluation of player input.
type CommandResult struct {
	Handled bool   // True if the command was fully resolved and no turn is needed
	Message string // Text to show the player
}

// TryHandleCommand answers shortcut commands from state alone, without a
// turn. Unrecognised input is returned unhandled.
func (gs *GameState) TryHandleCommand(input string) CommandResult {
	switch ParseCommand(input) {
	case CmdLook:
		return CommandResult{Handled: true, Message: gs.DescribeLocation()}
	case CmdInventory:
		return CommandResult{Handled: true, Message: gs.DescribeInventory()}
	case CmdClues:
		return CommandResult{Handled: true, Message: gs.DescribeClues()}
	case CmdLore:
		return CommandResult{Handled: true, Message: gs.DescribeLore()}
	case CmdPeople:
		return CommandResult{Handled: true, Message: gs.DescribeCharacters()}
	}
	return CommandResult{Message: input}
}

func (gs *GameState) DescribeLocation() string {
	for _, loc := range gs.Locations {
		if loc.ID == gs.Location && loc.Description != "" {
			return fmt.Sprintf("You are at %s. %s", loc.Name, loc.Description)
		}
	}
	return fmt.Sprintf("You are in %s.", gs.Location)
}

func (gs *GameState) DescribeInventory() string {
	if len(gs.Inventory) == 0 {
		return "Your pockets are empty."
	}
	lines := make([]string, len(gs.Inventory))
	for i, it := range gs.Inventory {
		lines[i] = describe(it.Name, it.Description)
	}
	return "You carry:\n" + strings.Join(lines, "\n")
}

func (gs *GameState) DescribeClues() string {
	if len(gs.Facts) == 0 {
		return "Your notebook holds no clues yet."
	}
	lines := make([]string, len(gs.Facts))
	for i, f := range gs.Facts {
		lines[i] = describe(f.Name, f.Description)
	}
	return "Clues:\n" + strings.Join(lines, "\n")
}

func (gs *GameState) DescribeLore() string {
	if len(gs.Lores) == 0 {
		return "You have mastered no lore."
	}
	lines := make([]string, len(gs.Lores))
	for i, l := range gs.Lores {
		lines[i] = describe(fmt.Sprintf("%s (%s %d)", l.Name, l.Principle, l.Level), l.Description)
	}
	return "Lore:\n" + strings.Join(lines, "\n")
}

func (gs *GameState) DescribeCharacters() string {
	if len(gs.Characters) == 0 {
		return "You know no one worth mentioning."
	}
	lines := make([]string, len(gs.Characters))
	for i, c := range gs.Characters {
		name := c.Name
		if c.Relationship != "" {
			name += " (" + c.Relationship + ")"
		}
		lines[i] = describe(name, c.Description)
	}
	return "People:\n" + strings.Join(lines, "\n")
}

func describe(name, description string) string {
	if description == "" {
		return "- " + name
	}
	return "- " + name + ": " + description
}

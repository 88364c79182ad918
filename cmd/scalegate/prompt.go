package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/scalegate/internal/gate"
)

// errQuit ends an interactive session.
var errQuit = errors.New("quit")

// prompter asks the operator for input.
type prompter interface {
	// Line reads one utterance. It returns errQuit when the operator leaves.
	Line(title string) (string, error)
	// Confirm asks whether to run a pending call. ack is the typed
	// acknowledgement when the call requires one.
	Confirm(c gate.Confirmation) (ack string, ok bool, err error)
}

// newPrompter is replaced in tests.
var newPrompter = func() prompter { return huhPrompter{} }

type huhPrompter struct{}

func (huhPrompter) Line(title string) (string, error) {
	var text string
	err := huh.NewInput().
		Title(title).
		Placeholder("list filesystems, help, exit").
		Value(&text).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", errQuit
	}
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	switch strings.ToLower(text) {
	case "exit", "quit":
		return "", errQuit
	}
	return text, nil
}

func (huhPrompter) Confirm(c gate.Confirmation) (string, bool, error) {
	if c.RequiresAcknowledgement() {
		var typed string
		err := huh.NewInput().
			Title(fmt.Sprintf("Type %q to run %s", c.AckPhrase, c.Tool)).
			Description("Leave empty to cancel.").
			Value(&typed).
			Run()
		if errors.Is(err, huh.ErrUserAborted) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		typed = strings.TrimSpace(typed)
		return typed, typed != "", nil
	}

	var ok bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Run %s?", c.Tool)).
		Affirmative("Confirm").
		Negative("Cancel").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", false, nil
	}
	return "", ok, err
}

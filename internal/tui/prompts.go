package tui

import (
	"errors"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// PromptMessage asks for a commit message, starting from current. A single
// line input is used for one-line messages and an editor-like multiline
// prompt otherwise. The result always ends in a newline.
func PromptMessage(title, current string) (string, error) {
	if err := checkInteractiveAllowed(); err != nil {
		return "", err
	}

	current = strings.TrimRight(current, "\n")
	var message string
	var prompt survey.Prompt
	if strings.Contains(current, "\n") {
		prompt = &survey.Multiline{Message: title, Default: current}
	} else {
		prompt = &survey.Input{Message: title, Default: current}
	}
	if err := survey.AskOne(prompt, &message, survey.WithValidator(survey.Required)); err != nil {
		return "", promptError(err)
	}
	return strings.TrimRight(message, "\n") + "\n", nil
}

// PromptConfirm prompts the user for yes/no confirmation
func PromptConfirm(message string, defaultValue bool) (bool, error) {
	if err := checkInteractiveAllowed(); err != nil {
		return false, err
	}

	confirmed := defaultValue
	prompt := &survey.Confirm{Message: message, Default: defaultValue}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, promptError(err)
	}
	return confirmed, nil
}

// PromptSelect asks the user to choose one of options and returns its index
func PromptSelect(message string, options []string) (int, error) {
	if err := checkInteractiveAllowed(); err != nil {
		return 0, err
	}

	var index int
	prompt := &survey.Select{Message: message, Options: options}
	if err := survey.AskOne(prompt, &index); err != nil {
		return 0, promptError(err)
	}
	return index, nil
}

func promptError(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrCanceled
	}
	return err
}

package prompter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/zfogg/threadline/pkg/output"
	"golang.org/x/term"
)

var (
	mu         sync.Mutex
	reader     = bufio.NewReader(os.Stdin)
	isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

// SetInput replaces stdin, for tests and scripted sessions. Password prompts
// read plain lines from it.
func SetInput(r io.Reader) {
	mu.Lock()
	defer mu.Unlock()
	reader = bufio.NewReader(r)
	isTerminal = func() bool { return false }
}

func readLine() (string, error) {
	mu.Lock()
	defer mu.Unlock()
	line, err := reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PromptString prompts user for a string input
func PromptString(label string) (string, error) {
	fmt.Fprint(output.Writer(), label)
	input, err := readLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// PromptDefault prompts with the current value shown; an empty answer keeps it
func PromptDefault(label, current string) (string, error) {
	if current != "" {
		label = fmt.Sprintf("%s [%s]: ", label, current)
	} else {
		label += ": "
	}
	input, err := PromptString(label)
	if err != nil {
		return "", err
	}
	if input == "" {
		return current, nil
	}
	return input, nil
}

// PromptPassword prompts user for a password (hidden input)
func PromptPassword(label string) (string, error) {
	fmt.Fprint(output.Writer(), label)

	if !isTerminal() {
		return readLine()
	}

	bytepw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}

	fmt.Fprintln(output.Writer())

	return string(bytepw), nil
}

// PromptConfirm prompts user for yes/no confirmation
func PromptConfirm(label string) (bool, error) {
	fmt.Fprint(output.Writer(), label+" (y/n) ")
	input, err := readLine()
	if err != nil {
		return false, err
	}

	response := strings.TrimSpace(strings.ToLower(input))
	return response == "y" || response == "yes", nil
}

// PromptSelect prompts user to select from options
func PromptSelect(label string, options []string) (int, error) {
	w := output.Writer()
	fmt.Fprintln(w, label)
	for i, opt := range options {
		fmt.Fprintf(w, "%d) %s\n", i+1, opt)
	}

	fmt.Fprint(w, "Select option: ")
	input, err := readLine()
	if err != nil {
		return -1, err
	}

	var selection int
	if _, err := fmt.Sscanf(strings.TrimSpace(input), "%d", &selection); err != nil {
		return -1, err
	}

	if selection < 1 || selection > len(options) {
		return -1, fmt.Errorf("invalid selection")
	}

	return selection - 1, nil
}

// PromptMultilineString reads lines until an empty one or maxLines
func PromptMultilineString(label string, maxLines int) (string, error) {
	fmt.Fprintf(output.Writer(), "%s (empty line to finish):\n", label)

	var lines []string
	for i := 0; i < maxLines; i++ {
		line, err := readLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if line == "" {
			break
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n"), nil
}

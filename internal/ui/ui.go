// Package ui wraps fzf for interactive picking. Items are piped to fzf over
// stdin as plain text; nothing remote ever reaches a shell-interpreted
// preview or command string.
package ui

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"cinestream/internal/media"
)

// ErrCancelled is returned when the user aborts a picker.
var ErrCancelled = fmt.Errorf("selection cancelled")

// Select shows items in fzf and returns the chosen index. Each line is
// prefixed with its index in a hidden field so the answer maps back without
// string comparison.
func Select(prompt string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("no items to select from")
	}

	fzfPath, err := exec.LookPath("fzf")
	if err != nil {
		return -1, fmt.Errorf("fzf not found in PATH: %w", err)
	}

	var input strings.Builder
	for i, item := range items {
		fmt.Fprintf(&input, "%d\t%s\n", i, item)
	}

	cmd := exec.Command(fzfPath,
		"--prompt", prompt+" > ",
		"--height", "40%",
		"--reverse",
		"--with-nth", "2..",
		"--delimiter", "\t",
		"--no-multi",
		"--cycle",
	)
	cmd.Stdin = strings.NewReader(input.String())
	cmd.Stderr = os.Stderr

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 130 {
			return -1, ErrCancelled
		}
		return -1, fmt.Errorf("fzf failed: %w", err)
	}

	selected := strings.TrimSpace(stdout.String())
	if selected == "" {
		return -1, fmt.Errorf("no selection made")
	}

	var idx int
	if _, err := fmt.Sscanf(strings.SplitN(selected, "\t", 2)[0], "%d", &idx); err != nil {
		return -1, fmt.Errorf("parsing selection index: %w", err)
	}
	if idx < 0 || idx >= len(items) {
		return -1, fmt.Errorf("selection index %d out of range", idx)
	}
	return idx, nil
}

// Confirm asks a yes/no question.
func Confirm(prompt string) (bool, error) {
	idx, err := Select(prompt, []string{"Yes", "No"})
	if err != nil {
		return false, err
	}
	return idx == 0, nil
}

// Input prompts for free text via fzf's --print-query.
func Input(prompt string) (string, error) {
	fzfPath, err := exec.LookPath("fzf")
	if err != nil {
		return "", fmt.Errorf("fzf not found in PATH: %w", err)
	}

	cmd := exec.Command(fzfPath,
		"--prompt", prompt+" > ",
		"--height", "10%",
		"--reverse",
		"--print-query",
		"--no-info",
	)
	cmd.Stdin = strings.NewReader("")
	cmd.Stderr = os.Stderr

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	// fzf exits 1 under --print-query with no match; that is the normal path.
	_ = cmd.Run()

	query := strings.TrimSpace(strings.Split(stdout.String(), "\n")[0])
	if query == "" {
		return "", fmt.Errorf("no input provided")
	}
	return query, nil
}

// SelectQuality picks one stream link by quality label.
func SelectQuality(res *media.Resolution) (*media.StreamLink, error) {
	if len(res.Links) == 1 {
		return &res.Links[0], nil
	}
	labels := make([]string, 0, len(res.Links))
	for _, l := range res.Links {
		labels = append(labels, l.Quality)
	}
	idx, err := Select("Quality", labels)
	if err != nil {
		return nil, err
	}
	return &res.Links[idx], nil
}

// SelectSubtitle picks a subtitle language, with an off entry first.
// An empty string means subtitles off.
func SelectSubtitle(refs []media.SubtitleRef) (string, error) {
	labels := []string{"Off"}
	for _, ref := range refs {
		label := ref.Display
		if label == "" {
			label = ref.Language
		}
		labels = append(labels, fmt.Sprintf("%s (%s)", label, ref.Language))
	}
	idx, err := Select("Subtitles", labels)
	if err != nil {
		return "", err
	}
	if idx == 0 {
		return "", nil
	}
	return refs[idx-1].Language, nil
}

// SelectItem picks a media item from search results or recommendations.
func SelectItem(prompt string, items []media.Item) (*media.Item, error) {
	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, it.DisplayTitle())
	}
	idx, err := Select(prompt, labels)
	if err != nil {
		return nil, err
	}
	return &items[idx], nil
}

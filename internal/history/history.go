package history

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"
)

// History is the list of command lines entered in the shell, persisted to a
// file after every addition.
type History struct {
	items    []string
	file     string
	maxItems int
	mu       sync.Mutex
}

// New loads the history kept in file, retaining at most maxItems entries.
func New(file string, maxItems int) (*History, error) {
	h := &History{
		file:     file,
		maxItems: maxItems,
	}
	if err := h.load(); err != nil {
		return nil, fmt.Errorf("load history %s: %w", file, err)
	}
	return h, nil
}

func (h *History) Add(item string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = append(h.items, item)
	h.trim()

	return h.save()
}

func (h *History) GetAll() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]string{}, h.items...)
}

func (h *History) trim() {
	if h.maxItems > 0 && len(h.items) > h.maxItems {
		h.items = h.items[len(h.items)-h.maxItems:]
	}
}

func (h *History) load() error {
	file, err := os.Open(h.file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		h.items = append(h.items, scanner.Text())
	}
	h.trim()

	return scanner.Err()
}

func (h *History) save() error {
	if h.file == "" {
		return nil
	}

	file, err := os.Create(h.file)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, item := range h.items {
		if _, err := writer.WriteString(item + "\n"); err != nil {
			return err
		}
	}
	return writer.Flush()
}

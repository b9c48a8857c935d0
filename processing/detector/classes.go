package processing

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadClassNames reads one class label per line. Line order is the class id.
func LoadClassNames(r io.Reader) ([]string, error) {
	var classes []string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		classes = append(classes, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return classes, nil
}

func LoadClassNamesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: class names: %v", ErrModelLoad, err)
	}
	defer f.Close()

	classes, err := LoadClassNames(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: %s has no class names", ErrModelLoad, path)
	}

	return classes, nil
}

func className(classes []string, id int) string {
	if id >= 0 && id < len(classes) {
		return classes[id]
	}
	return fmt.Sprintf("class_%d", id)
}

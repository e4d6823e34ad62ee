package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"
)

const (
	verpageHistory = ".verpage_history"
)

type lineReader struct {
	line *liner.State
}

func (lr lineReader) ReadLine() (string, error) {
	s, err := lr.line.Prompt("verpage: ")
	if err == liner.ErrPromptAborted {
		return "", io.EOF
	} else if err != nil {
		return "", err
	}
	lr.line.AppendHistory(s)
	return s, nil
}

// Interact runs the shell on the console with line editing and history.
func Interact(sh *Shell) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	if f, err := os.Open(verpageHistory); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	sh.Run(lineReader{line: line})

	if f, err := os.Create(verpageHistory); err != nil {
		fmt.Fprintf(os.Stderr, "verpage: error writing history file, %s: %s", verpageHistory, err)
	} else {
		line.WriteHistory(f)
		f.Close()
	}
}

type scanReader struct {
	scanner *bufio.Scanner
}

func (sr scanReader) ReadLine() (string, error) {
	if !sr.scanner.Scan() {
		err := sr.scanner.Err()
		if err == nil {
			err = io.EOF
		}
		return "", err
	}
	return sr.scanner.Text(), nil
}

// Lines reads commands from r, one per line.
func Lines(r io.Reader) LineReader {
	return scanReader{bufio.NewScanner(r)}
}

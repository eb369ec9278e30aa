package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// readTurn reads one conversational turn: lines accumulate until a
// blank line terminates the block, and the joined lines form the turn.
// The label is printed once, before the first line. Returns io.EOF when
// input is exhausted with nothing pending.
func readTurn(r *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprintf(w, "\n\n%s: ", label)

	var lines []string
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if err != nil {
			if err == io.EOF && (line != "" || len(lines) > 0) {
				if line != "" {
					lines = append(lines, line)
				}
				return strings.Join(lines, "\n"), nil
			}
			return "", err
		}
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

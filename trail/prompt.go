/*
	Songtrail
	Copyright (c) 2024 Songtrail contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package trail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter asks the user questions on a line-oriented stream.
// Invalid answers are reported and the question is asked again
// until the answer is valid or the input ends.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter returns a prompter reading answers from in and
// writing questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// readLine reads the next line of input, trimmed. It returns
// io.ErrUnexpectedEOF if the input ends before a line is read.
func (p *Prompter) readLine() (string, error) {
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// Ask writes question and passes each answer to parse until parse
// returns nil. Errors from parse are written to the output and the
// question is asked again.
func (p *Prompter) Ask(question string, parse func(answer string) error) error {
	for {
		fmt.Fprint(p.out, question)
		answer, err := p.readLine()
		if err != nil {
			return err
		}
		err = parse(answer)
		if err == nil {
			return nil
		}
		fmt.Fprintf(p.out, "Invalid input: %v\n", err)
	}
}

// AskInt asks for a single integer.
func (p *Prompter) AskInt(question string) (int, error) {
	var n int
	err := p.Ask(question, func(answer string) error {
		var err error
		n, err = strconv.Atoi(answer)
		return err
	})
	return n, err
}

// AskRange asks for the first and last index of a duplicate run.
// Both numbers are given on one line, separated by a space or a
// comma ("3 7" or "3,7"). Only the format is validated here; the
// bounds are checked by the correction itself.
func (p *Prompter) AskRange() (start, end int, err error) {
	err = p.Ask("Enter the index range of duplicates to predict (start end): ", func(answer string) error {
		fields := strings.FieldsFunc(answer, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ','
		})
		if len(fields) != 2 {
			return errors.New("expected two indices, for example: 12 18")
		}
		s, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("start index: %w", err)
		}
		e, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("end index: %w", err)
		}
		start, end = s, e
		return nil
	})
	return start, end, err
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(question string) (bool, error) {
	var yes bool
	err := p.Ask(question+" [y/n]: ", func(answer string) error {
		switch strings.ToLower(answer) {
		case "y", "yes":
			yes = true
		case "n", "no":
			yes = false
		default:
			return errors.New("answer y or n")
		}
		return nil
	})
	return yes, err
}

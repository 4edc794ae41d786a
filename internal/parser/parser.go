// Package parser reads seed decks written as markdown Q/A blocks:
//
//	Q: What is the capital of France?
//	A: Paris
//	C: Geography
//	---
//
// A new "Q:" line or a "---" separator ends the current card. Lines without a
// prefix continue the block above them.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	separator      = "---"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingContext
)

// ParseFile reads a file from the given path and extracts all seeds.
func ParseFile(path string) ([]domain.Seed, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all seeds. Blocks without a
// question are dropped.
func Parse(r io.Reader) ([]domain.Seed, error) {
	p := &blockParser{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.line(scanner.Text())
	}
	p.finishSeed() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p.seeds, nil
}

type blockParser struct {
	seeds   []domain.Seed
	current domain.Seed
	block   []string
	state   state
}

func (p *blockParser) line(line string) {
	if line == separator {
		p.finishSeed()
		return
	}

	next, content, ok := prefixed(line)
	if !ok {
		if p.state != seeking {
			p.block = append(p.block, line)
		}
		return
	}

	p.flushBlock()
	if next == readingQuestion && p.state != seeking {
		p.finishSeed() // A new question always starts a new card
	}
	p.state = next
	p.block = append(p.block, content)
}

// flushBlock stores the lines collected so far into the field being read.
func (p *blockParser) flushBlock() {
	if len(p.block) == 0 {
		return
	}
	content := strings.TrimRight(strings.Join(p.block, "\n"), "\n")
	switch p.state {
	case readingQuestion:
		p.current.Question = content
	case readingAnswer:
		p.current.Answer = content
	case readingContext:
		p.current.Context = content
	}
	p.block = nil
}

func (p *blockParser) finishSeed() {
	p.flushBlock()
	if p.current.Question != "" {
		p.seeds = append(p.seeds, p.current)
	}
	p.current = domain.Seed{}
	p.state = seeking
}

func prefixed(line string) (state, string, bool) {
	for _, c := range []struct {
		prefix string
		state  state
	}{
		{questionPrefix, readingQuestion},
		{answerPrefix, readingAnswer},
		{contextPrefix, readingContext},
	} {
		if rest, ok := strings.CutPrefix(line, c.prefix); ok {
			return c.state, strings.TrimPrefix(rest, " "), true
		}
	}
	return seeking, "", false
}

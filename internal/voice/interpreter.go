// Package voice turns spoken exam commands into structured actions.
package voice

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/reinhrst/fzf-lib"
	"github.com/rs/zerolog"
)

const (
	matchConfidence = 0.9
	maxSuggestions  = 2
	fuzzyTimeout    = 200 * time.Millisecond
	regexTimeout    = 50 * time.Millisecond
)

// Command is the interpretation of one utterance.
type Command struct {
	Type           string   `json:"type"`
	Action         string   `json:"action,omitempty"`
	Confidence     float64  `json:"confidence"`
	Value          *int     `json:"value,omitempty"`
	Suggestions    []string `json:"suggestions,omitempty"`
	OriginalText   string   `json:"original_text,omitempty"`
	NormalizedText string   `json:"normalized_text,omitempty"`
}

// Known reports whether the utterance matched a command.
func (c Command) Known() bool { return c.Type != CategoryUnknown }

type compiledCommand struct {
	category string
	action   string
	patterns []*regexp2.Regexp
}

type hint struct {
	when, unless *regexp2.Regexp
	text         string
}

var (
	fillerWords = compile(`\b(uh|um|er|ah|like|you know|well|so|actually|basically|please|now|can you|could you|i want to|i would like to|go ahead and|let me|let's|okay|alright)\b`)
	whitespace  = compile(`\s+`)
	questionNum = compile(`\b(question|number|item)\s*(\d+)`)

	hints = []hint{
		{compile(`\b(go|navigate|show|take|move)\b`), nil,
			`Try: "go to exams", "go home", "go to results", or "help"`},
		{compile(`\b(do|make|perform|execute)\b`), compile(`\b(submit|save|flag|clear)\b`),
			`Try: "submit exam", "save answer", "flag question", or "clear answer"`},
		{compile(`\b(read|speak|say|tell)\b`), compile(`\b(question|option|page)\b`),
			`Try: "read question", "read options", "read page", or "stop reading"`},
		{compile(`\b(answer|choose|select|pick)\b`), compile(`\b([a-e]|true|false)\b`),
			`Try: "option A", "option B", "true", "false", or use phonetic alphabet like "alpha", "bravo"`},
	}
)

func compile(pattern string) *regexp2.Regexp {
	re := regexp2.MustCompile(pattern, regexp2.IgnoreCase)
	re.MatchTimeout = regexTimeout
	return re
}

// Interpreter matches utterances against the static command table. It is safe for
// concurrent use.
type Interpreter struct {
	commands []compiledCommand
	log      zerolog.Logger
}

// NewInterpreter compiles the command table.
func NewInterpreter(log zerolog.Logger) *Interpreter {
	in := &Interpreter{log: log.With().Str("component", "voice").Logger()}
	for _, cat := range commandTable {
		for _, cmd := range cat.commands {
			cc := compiledCommand{category: cat.name, action: cmd.action}
			for _, p := range cmd.patterns {
				cc.patterns = append(cc.patterns, compile(p))
			}
			in.commands = append(in.commands, cc)
		}
	}
	return in
}

// Normalize lowercases text, drops filler words and collapses whitespace.
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = replaceAll(fillerWords, s, "")
	s = replaceAll(whitespace, s, " ")
	return strings.TrimSpace(s)
}

// Interpret returns the first command whose pattern matches the normalized text.
// Unmatched input yields an unknown command with up to two suggestions.
func (in *Interpreter) Interpret(text string) Command {
	unknown := Command{Type: CategoryUnknown}
	if text == "" {
		return unknown
	}
	clean := Normalize(text)
	if clean == "" {
		return unknown
	}

	for _, cmd := range in.commands {
		for _, re := range cmd.patterns {
			ok, err := re.MatchString(clean)
			if err != nil {
				in.log.Warn().Err(err).Str("action", cmd.action).Msg("Command pattern failed")
				continue
			}
			if !ok {
				continue
			}
			res := Command{Type: cmd.category, Action: cmd.action, Confidence: matchConfidence}
			if cmd.action == ActionGoto {
				res.Value = questionNumber(clean)
			}
			return res
		}
	}

	unknown.Suggestions = in.suggest(clean)
	unknown.OriginalText = text
	unknown.NormalizedText = clean
	return unknown
}

func questionNumber(text string) *int {
	m, err := questionNum.FindStringMatch(text)
	if err != nil || m == nil {
		return nil
	}
	n, err := strconv.Atoi(m.GroupByNumber(2).String())
	if err != nil {
		return nil
	}
	return &n
}

// suggest combines keyword hints with fuzzy matches against the canonical phrases.
func (in *Interpreter) suggest(text string) []string {
	out := []string{}
	for _, h := range hints {
		if len(out) == maxSuggestions {
			return out
		}
		if matches(h.when, text) && (h.unless == nil || !matches(h.unless, text)) {
			out = append(out, h.text)
		}
	}

	for _, phrase := range in.fuzzy(text) {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, fmt.Sprintf("Try: %q", phrase))
	}
	return out
}

func (in *Interpreter) fuzzy(text string) []string {
	searcher := fzf.New(phrases, fzf.DefaultOptions())
	defer searcher.End()
	searcher.Search(text)

	select {
	case res := <-searcher.GetResultChannel():
		keys := make([]string, 0, len(res.Matches))
		for _, m := range res.Matches {
			keys = append(keys, m.Key)
		}
		return keys
	case <-time.After(fuzzyTimeout):
		in.log.Warn().Str("text", text).Msg("Fuzzy command search timed out")
		return nil
	}
}

func matches(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	return err == nil && ok
}

func replaceAll(re *regexp2.Regexp, s, repl string) string {
	out, err := re.Replace(s, repl, -1, -1)
	if err != nil {
		return s
	}
	return out
}

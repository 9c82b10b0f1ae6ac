// Package chatbot answers support questions with an ordered keyword
// dictionary loaded from YAML.
package chatbot

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

//go:embed intents.yaml
var defaultDictionary []byte

const DefaultIntent = "default"

type Intent struct {
	Name      string   `yaml:"name"`
	Keywords  []string `yaml:"keywords"`
	Responses []string `yaml:"responses"`
}

type Pattern struct {
	Name     string `yaml:"name"`
	Regex    string `yaml:"regex"`
	Response string `yaml:"response"`

	re *regexp.Regexp
}

type Dictionary struct {
	Intents  []Intent  `yaml:"intents"`
	Default  []string  `yaml:"default"`
	Patterns []Pattern `yaml:"patterns"`
}

type Bot struct {
	dict Dictionary
}

type Reply struct {
	Intent   string `json:"intent"`
	Response string `json:"response"`
}

// New loads the dictionary from path, or the built-in one when path is empty.
func New(path string) (*Bot, error) {
	raw := defaultDictionary
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read intents file: %w", err)
		}
		raw = data
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Bot, error) {
	var dict Dictionary
	if err := yaml.Unmarshal(raw, &dict); err != nil {
		return nil, fmt.Errorf("parse intents: %w", err)
	}
	if len(dict.Default) == 0 {
		return nil, errors.New("intents: default responses are required")
	}
	for i := range dict.Intents {
		intent := &dict.Intents[i]
		if intent.Name == "" || len(intent.Responses) == 0 {
			return nil, fmt.Errorf("intents: entry %d needs a name and at least one response", i)
		}
		for j, kw := range intent.Keywords {
			intent.Keywords[j] = strings.ToLower(kw)
		}
	}
	for i := range dict.Patterns {
		re, err := regexp.Compile(dict.Patterns[i].Regex)
		if err != nil {
			return nil, fmt.Errorf("intents: pattern %q: %w", dict.Patterns[i].Name, err)
		}
		dict.Patterns[i].re = re
	}
	return &Bot{dict: dict}, nil
}

// Labels returns the intent names in match order.
func (b *Bot) Labels() []string {
	labels := make([]string, 0, len(b.dict.Intents))
	for _, intent := range b.dict.Intents {
		labels = append(labels, intent.Name)
	}
	return labels
}

// Classify returns the first intent with a keyword contained in query, or "".
func (b *Bot) Classify(query string) string {
	q := strings.ToLower(query)
	for _, intent := range b.dict.Intents {
		for _, kw := range intent.Keywords {
			if strings.Contains(q, kw) {
				return intent.Name
			}
		}
	}
	return ""
}

func (b *Bot) Respond(query string, now time.Time) Reply {
	if name := b.Classify(query); name != "" {
		for _, intent := range b.dict.Intents {
			if intent.Name == name {
				return Reply{Intent: name, Response: intent.Responses[0]}
			}
		}
	}

	q := strings.ToLower(query)
	for _, p := range b.dict.Patterns {
		if p.re.MatchString(q) {
			response := strings.ReplaceAll(p.Response, "{time_of_day}", TimeOfDay(now))
			return Reply{Intent: p.Name, Response: response}
		}
	}
	return Reply{Intent: DefaultIntent, Response: b.dict.Default[0]}
}

func TimeOfDay(t time.Time) string {
	switch hour := t.Hour(); {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 22:
		return "evening"
	default:
		return "night"
	}
}

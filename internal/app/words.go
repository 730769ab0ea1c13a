package app

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultWords is the built-in catalogue of secret words
var DefaultWords = []string{
	// Animals
	"elephant", "giraffe", "penguin", "dolphin", "butterfly", "kangaroo", "octopus", "flamingo",
	"cheetah", "peacock", "hamster", "crocodile", "lobster", "parrot", "jellyfish", "hedgehog",

	// Food & Drinks
	"pizza", "sushi", "hamburger", "chocolate", "pancake", "avocado", "popcorn", "watermelon",
	"coffee", "lemonade", "sandwich", "spaghetti", "cheesecake", "burrito", "pretzel", "milkshake",

	// Objects
	"umbrella", "telescope", "backpack", "headphones", "microwave", "keyboard", "scissors", "candle",
	"compass", "lantern", "whistle", "hammer", "anchor", "hourglass", "mirror", "helmet",

	// Places
	"hospital", "airport", "library", "museum", "stadium", "lighthouse", "castle", "aquarium",
	"casino", "subway", "rooftop", "warehouse", "temple", "pyramid", "harbor", "bakery",

	// Nature
	"volcano", "waterfall", "rainbow", "tornado", "glacier", "desert", "canyon", "thunder",
	"meteor", "eclipse", "aurora", "tsunami", "avalanche", "island", "sunset", "lightning",

	// Professions
	"astronaut", "detective", "firefighter", "architect", "scientist", "musician", "photographer", "journalist",
	"carpenter", "electrician", "veterinarian", "lifeguard", "mechanic", "librarian", "dentist", "pilot",

	// Technology
	"hacker", "robot", "hologram", "satellite", "drone", "joystick", "smartphone", "television",
	"computer", "printer", "battery", "antenna", "projector", "calculator", "microphone", "radar",

	// Miscellaneous
	"pirate", "wizard", "mermaid", "vampire", "zombie", "superhero", "ninja", "knight",
	"dinosaur", "unicorn", "dragon", "alien", "ghost", "phoenix", "origami", "kaleidoscope",
}

// WordPool hands out secret words without repeats until the catalogue is
// exhausted, then starts over.
type WordPool struct {
	mu    sync.Mutex
	words []string
	used  map[string]struct{}
	intn  func(n int) int
}

// NewWordPool creates a pool over the given catalogue. Words are trimmed and
// de-duplicated; an empty catalogue falls back to DefaultWords.
func NewWordPool(words []string) *WordPool {
	catalogue := cleanWords(words)
	if len(catalogue) == 0 {
		catalogue = cleanWords(DefaultWords)
	}

	return &WordPool{
		words: catalogue,
		used:  make(map[string]struct{}, len(catalogue)),
		intn:  rand.Intn,
	}
}

// Next returns a random word not handed out since the last reset
func (p *WordPool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.used) >= len(p.words) {
		clear(p.used)
	}

	available := make([]string, 0, len(p.words)-len(p.used))
	for _, w := range p.words {
		if _, ok := p.used[w]; !ok {
			available = append(available, w)
		}
	}

	word := available[p.intn(len(available))]
	p.used[word] = struct{}{}
	return word
}

// Reset forgets which words have been used
func (p *WordPool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.used)
}

// Size returns the number of distinct words in the catalogue
func (p *WordPool) Size() int {
	return len(p.words)
}

// Contains reports whether word is in the catalogue
func (p *WordPool) Contains(word string) bool {
	for _, w := range p.words {
		if w == word {
			return true
		}
	}
	return false
}

// wordFile is the YAML layout of a custom catalogue
type wordFile struct {
	Words      []string            `yaml:"words"`
	Categories map[string][]string `yaml:"categories"`
}

// LoadWords reads a YAML catalogue with a flat `words` list, a `categories`
// map of lists, or both.
func LoadWords(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word file: %w", err)
	}

	var f wordFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse word file: %w", err)
	}

	words := append([]string{}, f.Words...)
	for _, list := range f.Categories {
		words = append(words, list...)
	}

	words = cleanWords(words)
	if len(words) == 0 {
		return nil, fmt.Errorf("word file %s has no words", path)
	}
	return words, nil
}

func cleanWords(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// Package topics provides the opaque topic and persona string pools that
// feed obsession fixations and producer queries. The core treats these as
// black-box providers of strings per §1; this package is the supplemental
// collaborator that supplies them, loading optional YAML wordlists and
// falling back to a built-in catalogue otherwise.
package topics

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// builtinCatalogue mirrors the reference implementation's fallback topic
// categories, used whenever no wordlist files are present on disk.
var builtinCatalogue = map[string][]string{
	"technology": {
		"best laptop 2025", "python tutorial", "react vs vue",
		"kubernetes deployment", "raspberry pi projects",
		"home server setup", "linux distro comparison",
		"mechanical keyboard review", "AI image generation",
		"self-hosted alternatives", "docker compose examples",
	},
	"shopping": {
		"best hiking boots", "wireless earbuds under 100",
		"standing desk review", "coffee grinder recommendations",
		"winter jacket sale", "running shoes for flat feet",
		"ergonomic mouse", "air purifier for allergies",
		"cast iron skillet", "backpack for travel",
	},
	"news": {
		"latest tech news", "world news today",
		"climate change report", "election results",
		"stock market analysis", "space exploration news",
		"cybersecurity breach", "supply chain update",
	},
	"health": {
		"intermittent fasting benefits", "best stretches for back pain",
		"sleep hygiene tips", "vitamin d deficiency symptoms",
		"meditation for beginners", "HIIT workout plan",
		"anti-inflammatory diet", "mental health resources",
	},
	"travel": {
		"cheap flights to europe", "best time to visit japan",
		"road trip planner", "travel insurance comparison",
		"hostel vs airbnb", "passport renewal process",
	},
	"privacy": {
		"best vpn service", "password manager comparison",
		"encrypted email providers", "browser privacy settings",
		"data broker opt out", "two factor authentication setup",
		"privacy focused search engine", "secure messaging apps",
	},
}

// Catalogue holds the loaded topic pools, keyed by category, and an
// entropy source for random selection.
type Catalogue struct {
	mu         sync.Mutex
	rng        *rand.Rand
	byCategory map[string][]string
}

// Load reads every *.yaml file under dir as {category: [terms...]}; if dir
// is empty, doesn't exist, or contributes no valid entries, it falls back
// to the built-in catalogue.
func Load(dir string, seed int64, log *logrus.Logger) *Catalogue {
	c := &Catalogue{
		rng:        rand.New(rand.NewSource(seed)),
		byCategory: make(map[string][]string),
	}

	loaded := false
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, entry := range entries {
				if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
					continue
				}
				path := filepath.Join(dir, entry.Name())
				data, err := os.ReadFile(path)
				if err != nil {
					log.WithError(err).WithField("file", path).Warn("could not read wordlist")
					continue
				}
				var parsed map[string][]string
				if err := yaml.Unmarshal(data, &parsed); err != nil {
					log.WithError(err).WithField("file", path).Warn("bad wordlist yaml")
					continue
				}
				for category, terms := range parsed {
					if len(terms) == 0 {
						continue
					}
					c.byCategory[category] = append(c.byCategory[category], terms...)
					loaded = true
				}
			}
		}
	}

	if !loaded {
		c.byCategory = builtinCatalogue
	}
	return c
}

// Categories returns every loaded category name.
func (c *Catalogue) Categories() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.byCategory))
	for k := range c.byCategory {
		out = append(out, k)
	}
	return out
}

// All returns the flattened union of every category's terms.
func (c *Catalogue) All() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, terms := range c.byCategory {
		out = append(out, terms...)
	}
	return out
}

// RandomQuery returns a random term, optionally scoped to category.
func (c *Catalogue) RandomQuery(category string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	pool := c.byCategory[category]
	if len(pool) == 0 {
		for _, terms := range c.byCategory {
			pool = append(pool, terms...)
		}
	}
	if len(pool) == 0 {
		return ""
	}
	return pool[c.rng.Intn(len(pool))]
}

// obsessionModifiers mirrors the reference's query variations for a
// sustained topic deep-dive.
var obsessionModifiers = []string{
	"%s", "%s review", "%s comparison", "%s reddit", "best %s",
	"%s pros and cons", "%s alternatives", "%s guide", "%s tutorial",
	"%s cost", "%s forum", "%s near me", "is %s worth it", "%s vs",
}

// QueriesForObsession generates up to count related queries for a
// sustained fixation on topic, the way a human thoroughly researching one
// subject would phrase successive searches.
func (c *Catalogue) QueriesForObsession(topic string, count int) []string {
	c.mu.Lock()
	perm := c.rng.Perm(len(obsessionModifiers))
	c.mu.Unlock()

	if count > len(obsessionModifiers) {
		count = len(obsessionModifiers)
	}
	out := make([]string, 0, count)
	for _, idx := range perm[:count] {
		out = append(out, fmt.Sprintf(obsessionModifiers[idx], topic))
	}
	return out
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Feed is one curated editorial feed.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Social points at the Kafka topic the scraper fleet publishes raw posts to.
type Social struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Group   string   `yaml:"group"`
}

// Sources is the parsed sources file.
type Sources struct {
	Feeds  []Feed `yaml:"feeds"`
	Social Social `yaml:"social"`
}

// LoadSources reads and validates the YAML sources file.
func LoadSources(path string) (*Sources, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var s Sources
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	for i, f := range s.Feeds {
		if f.URL == "" {
			return nil, fmt.Errorf("feed %d (%q) has no url", i, f.Name)
		}
	}
	if s.Social.Topic != "" && len(s.Social.Brokers) == 0 {
		return nil, fmt.Errorf("social topic %q configured without brokers", s.Social.Topic)
	}

	return &s, nil
}

package extractor

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

const (
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	iPhoneUserAgent  = "Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15"
)

// DefaultProfiles returns the built-in probe profiles in the order they are tried.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:       "desktop-us",
			UserAgent:  desktopUserAgent,
			Referer:    "https://www.youtube.com/",
			GeoCountry: "US",
			Format:     "best/worst",
		},
		{
			Name:   "minimal",
			Format: "worst/best",
		},
		{
			Name:       "iphone-ca",
			UserAgent:  iPhoneUserAgent,
			GeoCountry: "CA",
			Format:     "best",
		},
	}
}

type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads an ordered profile list from a YAML file.
func LoadProfiles(path string) ([]Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profiles file: %w", err)
	}
	defer f.Close()

	var doc profilesFile
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode profiles file: %w", err)
	}

	if len(doc.Profiles) == 0 {
		return nil, errors.New("profiles file defines no profiles")
	}
	seen := make(map[string]bool, len(doc.Profiles))
	for i, p := range doc.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d has no name", i+1)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate profile %q", p.Name)
		}
		seen[p.Name] = true
	}
	return doc.Profiles, nil
}

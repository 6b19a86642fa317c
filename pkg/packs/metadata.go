package packs

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/packtest/pkg/errors"
)

// Metadata is the subset of pack.yaml packtest cares about. The manifest
// belongs to the automation platform; unknown fields are ignored.
type Metadata struct {
	Name        string `yaml:"name"`
	Ref         string `yaml:"ref"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
	Author      string `yaml:"author"`
}

// LoadMetadata reads the pack's pack.yaml if present. A missing manifest
// returns (nil, nil): metadata is optional.
func (p *Pack) LoadMetadata() (*Metadata, error) {
	path := filepath.Join(p.Path, MetadataFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot read pack metadata").
			WithDetail("path", path)
	}

	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrap(err, errors.ErrPackInvalid, "malformed pack.yaml").
			WithDetail("path", path)
	}
	return &meta, nil
}

// DisplayName returns the name to show for this pack: the pack.yaml name
// when one is declared, the directory name otherwise. The directory name
// always keys the virtualenv, so renaming in pack.yaml never invalidates a
// cached environment.
func (p *Pack) DisplayName() string {
	meta, err := p.LoadMetadata()
	if err != nil || meta == nil || meta.Name == "" {
		return p.Name
	}
	return meta.Name
}

// Package directory resolves the reference data a notification is raised
// with: the bed, its organization, and the users on duty.
package directory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bed-alerts/internal/domain"
)

var errBedIDRequired = errors.New("bed id must be provided")

// file is the on-disk YAML layout.
type file struct {
	Organization domain.Organization `yaml:"organization"`
	Beds         []domain.Bed        `yaml:"beds"`
	Users        []domain.User       `yaml:"users"`
}

// Directory is an immutable, in-memory view of one organization.
type Directory struct {
	organization domain.Organization
	beds         map[string]domain.Bed
	users        []domain.User
}

// Load reads a directory from a YAML file. An empty path yields an empty
// directory in which every lookup fails.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Parse(nil)
	}
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	return Parse(contents)
}

// Parse builds a Directory from YAML contents.
func Parse(contents []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(contents, &f); err != nil {
		return nil, fmt.Errorf("unmarshal directory: %w", err)
	}

	d := &Directory{
		organization: f.Organization,
		beds:         make(map[string]domain.Bed, len(f.Beds)),
		users:        make([]domain.User, 0, len(f.Users)),
	}
	for i, b := range f.Beds {
		if b.ID == "" {
			return nil, fmt.Errorf("beds[%d]: %w", i, errBedIDRequired)
		}
		if _, dup := d.beds[b.ID]; dup {
			return nil, fmt.Errorf("duplicate bed id %q", b.ID)
		}
		d.beds[b.ID] = b
	}
	for _, u := range f.Users {
		d.users = append(d.users, u.Clone())
	}
	return d, nil
}

// Lookup returns the bed, its organization and every known user. Ward
// filtering is left to the notification. Unknown beds wrap domain.ErrNotFound.
func (d *Directory) Lookup(bedID string) (domain.Bed, domain.Organization, []domain.User, error) {
	bed, ok := d.beds[bedID]
	if !ok {
		return domain.Bed{}, domain.Organization{}, nil, fmt.Errorf("bed %s: %w", bedID, domain.ErrNotFound)
	}
	users := make([]domain.User, len(d.users))
	for i, u := range d.users {
		users[i] = u.Clone()
	}
	return bed, d.organization, users, nil
}

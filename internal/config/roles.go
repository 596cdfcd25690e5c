package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RoleTemplate describes one worker role that team formation can draw
// from when staffing a team against the required specializations.
type RoleTemplate struct {
	// Name is the role identifier, e.g. "coder".
	Name string `yaml:"name"`
	// Specialization is the specialization this role satisfies.
	Specialization string `yaml:"specialization"`
	// Skills are the skill tags workers spawned from this role carry.
	Skills []string `yaml:"skills"`
	// MaxConcurrent overrides the default per-worker concurrency
	// ceiling when positive.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// rolesFile is the on-disk shape of the role templates file.
type rolesFile struct {
	Roles []RoleTemplate `yaml:"roles"`
}

// DefaultRoleTemplates returns the built-in role catalog used when no
// roles file is configured.
func DefaultRoleTemplates() []RoleTemplate {
	return []RoleTemplate{
		{Name: "researcher", Specialization: "researcher", Skills: []string{"research", "analysis", "summarization"}},
		{Name: "coder", Specialization: "coder", Skills: []string{"coding", "debugging", "refactoring"}},
		{Name: "reviewer", Specialization: "reviewer", Skills: []string{"review", "analysis"}},
		{Name: "tester", Specialization: "tester", Skills: []string{"testing", "debugging"}},
		{Name: "writer", Specialization: "writer", Skills: []string{"writing", "documentation", "summarization"}},
	}
}

// GetRolesPath returns the path to the user roles file.
func GetRolesPath() string {
	return filepath.Join(getUserConfigDir(), "roles.yaml")
}

// LoadRoleTemplates loads role templates from the given YAML file.
// A missing file yields the built-in catalog.
func LoadRoleTemplates(path string) ([]RoleTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRoleTemplates(), nil
		}
		return nil, fmt.Errorf("reading roles file: %w", err)
	}

	var file rolesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing roles file %s: %w", path, err)
	}

	if len(file.Roles) == 0 {
		return nil, fmt.Errorf("roles file %s defines no roles", path)
	}
	for i, role := range file.Roles {
		if role.Name == "" {
			return nil, fmt.Errorf("roles file %s: role %d has no name", path, i)
		}
		if role.Specialization == "" {
			return nil, fmt.Errorf("roles file %s: role %q has no specialization", path, role.Name)
		}
	}

	return file.Roles, nil
}

// SaveRoleTemplates writes role templates to the given YAML file.
func SaveRoleTemplates(path string, roles []RoleTemplate) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating roles directory: %w", err)
	}

	data, err := yaml.Marshal(rolesFile{Roles: roles})
	if err != nil {
		return fmt.Errorf("marshaling roles: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing roles file: %w", err)
	}
	return nil
}

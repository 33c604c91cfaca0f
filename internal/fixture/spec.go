package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/roach88/wcmove/internal/store"
	"github.com/roach88/wcmove/internal/wc"
)

// Default repository of a fixture that does not name one.
const (
	DefaultReposRoot = "file:///repo"
	DefaultReposUUID = "00000000-0000-0000-0000-000000000001"
)

// Spec is a working-copy state described in YAML:
//
//	base:                      # checked out, rows and disk
//	  - {path: X, kind: dir, rev: 1}
//	  - {path: X/g, kind: file, rev: 1, content: "g\n"}
//	moves:
//	  - {from: X, to: Y}
//	deletes: [Y/sub]           # plain local deletes
//	files: {Y/g: "edited\n"}   # working file contents
//	actual_props: {Y/g: {p: "2"}}
//	update:                    # BASE rows only, as an update leaves them
//	  - {path: X/f, kind: file, rev: 2, content: "hi"}
//	remove: [X/g]              # BASE subtrees the update removed
//	victims:
//	  - {path: X, old_rev: 1, new_rev: 2}
//
// Steps are applied in the order of the fields above.
type Spec struct {
	Repository  Repository          `yaml:"repository,omitempty"`
	Base        []Node              `yaml:"base"`
	Moves       []MoveStep          `yaml:"moves,omitempty"`
	Deletes     []string            `yaml:"deletes,omitempty"`
	Files       map[string]string   `yaml:"files,omitempty"`
	ActualProps map[string]wc.Props `yaml:"actual_props,omitempty"`
	Update      []Node              `yaml:"update,omitempty"`
	Remove      []string            `yaml:"remove,omitempty"`
	Victims     []Victim            `yaml:"victims,omitempty"`
}

// Repository identifies the repository the BASE rows come from.
type Repository struct {
	Root string `yaml:"root"`
	UUID string `yaml:"uuid"`
}

// MoveStep is one local move.
type MoveStep struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Victim is a moved-away conflict left by an update.
type Victim struct {
	Path   string `yaml:"path"`
	OldRev int64  `yaml:"old_rev"`
	NewRev int64  `yaml:"new_rev"`
}

// Load reads a fixture file. Unknown fields are rejected.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &spec, nil
}

// Validate checks the fixture for missing or malformed fields.
func (s *Spec) Validate() error {
	if len(s.Base) == 0 {
		return errors.New("base list is required and must be non-empty")
	}
	if s.Repository.UUID != "" {
		if err := uuid.Validate(s.Repository.UUID); err != nil {
			return fmt.Errorf("repository: invalid uuid %q: %w", s.Repository.UUID, err)
		}
	}
	for i, nodes := range [][]Node{s.Base, s.Update} {
		field := []string{"base", "update"}[i]
		for j, n := range nodes {
			if n.Kind != wc.KindDir && n.Kind != wc.KindFile {
				return fmt.Errorf("%s[%d]: kind must be dir or file, got %q", field, j, n.Kind)
			}
			if n.Rev <= 0 {
				return fmt.Errorf("%s[%d]: rev must be positive", field, j)
			}
		}
	}
	for i, m := range s.Moves {
		if m.From == "" || m.To == "" {
			return fmt.Errorf("moves[%d]: from and to are required", i)
		}
	}
	for i, v := range s.Victims {
		if v.Path == "" {
			return fmt.Errorf("victims[%d]: path is required", i)
		}
	}
	return nil
}

// Apply builds the fixture in an empty working copy: rows through s, texts
// through texts and files below dir.
func (s *Spec) Apply(ctx context.Context, st *store.Store, texts Texts, dir string) error {
	repo := s.Repository
	if repo.Root == "" {
		repo.Root = DefaultReposRoot
	}
	if repo.UUID == "" {
		repo.UUID = DefaultReposUUID
	}

	err := st.WithTx(ctx, func(tx *store.Tx) error {
		id, err := tx.EnsureRepository(repo.Root, repo.UUID)
		if err != nil {
			return err
		}
		base := s.Base
		if !slices.ContainsFunc(base, func(n Node) bool { return n.Path == "" }) {
			base = append([]Node{Dir("", 1)}, base...)
		}
		if err := WriteBase(tx, texts, id, base...); err != nil {
			return err
		}
		for _, m := range s.Moves {
			if err := Move(tx, m.From, m.To); err != nil {
				return err
			}
		}
		for _, p := range s.Deletes {
			if err := Delete(tx, p); err != nil {
				return err
			}
		}
		for _, p := range sortedKeys(s.ActualProps) {
			if err := tx.SetActualProps(p, s.ActualProps[p]); err != nil {
				return err
			}
		}
		if err := WriteBase(tx, texts, id, s.Update...); err != nil {
			return err
		}
		for _, p := range s.Remove {
			if err := tx.DeleteLayerSubtree(p, 0); err != nil {
				return err
			}
		}
		r, err := tx.Repository(id)
		if err != nil {
			return err
		}
		for _, v := range s.Victims {
			skel, err := VictimConflict(r, v.Path, v.OldRev, v.NewRev)
			if err != nil {
				return err
			}
			if err := tx.SetConflict(v.Path, skel); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply fixture: %w", err)
	}

	if err := Materialize(dir, s.Base...); err != nil {
		return fmt.Errorf("apply fixture: %w", err)
	}
	for _, m := range s.Moves {
		if err := MoveFiles(dir, m.From, m.To); err != nil {
			return fmt.Errorf("apply fixture: %w", err)
		}
	}
	for _, p := range s.Deletes {
		if err := os.RemoveAll(filepath.Join(dir, filepath.FromSlash(p))); err != nil {
			return fmt.Errorf("apply fixture: %w", err)
		}
	}
	for _, p := range sortedKeys(s.Files) {
		if err := Materialize(dir, File(p, 1, s.Files[p])); err != nil {
			return fmt.Errorf("apply fixture: %w", err)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

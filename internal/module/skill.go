package module

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var frontmatterFence = []byte("---")

// SplitFrontmatter separates an optional YAML frontmatter block from the
// markdown body. Files without an opening fence are all body.
func SplitFrontmatter(raw []byte) (meta map[string]any, body string, err error) {
	trimmed := bytes.TrimPrefix(raw, []byte("\ufeff"))
	if !bytes.HasPrefix(trimmed, frontmatterFence) {
		return nil, string(raw), nil
	}
	rest := trimmed[len(frontmatterFence):]
	rest = bytes.TrimPrefix(rest, []byte("\r"))
	if len(rest) == 0 || rest[0] != '\n' {
		return nil, string(raw), nil
	}
	rest = rest[1:]
	stop := closingFence(rest)
	if stop < 0 {
		return nil, "", fmt.Errorf("MOD_FRONTMATTER: unterminated frontmatter fence")
	}
	head := rest[:stop]
	tail := rest[stop+len("\n---"):]
	if idx := bytes.IndexByte(tail, '\n'); idx >= 0 {
		tail = tail[idx+1:]
	} else {
		tail = nil
	}
	meta = map[string]any{}
	if err := yaml.Unmarshal(head, &meta); err != nil {
		return nil, "", fmt.Errorf("MOD_FRONTMATTER: %w", err)
	}
	return meta, string(tail), nil
}

// closingFence finds the index of a "---" that starts a line and ends it,
// so dashes inside the metadata never terminate the block early.
func closingFence(data []byte) int {
	for i := 0; ; {
		j := bytes.Index(data[i:], []byte("\n---"))
		if j < 0 {
			return -1
		}
		k := i + j
		after := data[k+len("\n---"):]
		if len(after) == 0 || after[0] == '\n' || after[0] == '\r' {
			return k
		}
		i = k + 1
	}
}

// LoadSkill reads and validates one skill directory. The skill's identity
// is the manifest-declared name; the frontmatter must carry a non-empty
// description.
func LoadSkill(moduleName, name, dir string) (Skill, error) {
	raw, err := os.ReadFile(filepath.Join(dir, SkillFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return Skill{}, &ValidationError{Module: moduleName, Problems: []string{fmt.Sprintf("skill %q: missing %s", name, SkillFileName)}}
		}
		return Skill{}, err
	}
	meta, body, err := SplitFrontmatter(raw)
	if err != nil {
		return Skill{}, &ValidationError{Module: moduleName, Problems: []string{fmt.Sprintf("skill %q: %v", name, err)}}
	}
	description, _ := meta["description"].(string)
	if strings.TrimSpace(description) == "" {
		return Skill{}, &ValidationError{Module: moduleName, Problems: []string{fmt.Sprintf("skill %q: description is required", name)}}
	}
	extra := map[string]any{}
	for k, v := range meta {
		if k == "name" || k == "description" {
			continue
		}
		extra[k] = v
	}
	aux, err := listAuxFiles(dir)
	if err != nil {
		return Skill{}, err
	}
	return Skill{
		Name:        name,
		Description: description,
		Body:        body,
		Raw:         raw,
		Extra:       extra,
		Dir:         dir,
		AuxFiles:    aux,
	}, nil
}

func listAuxFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel == SkillFileName {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	return out, err
}

// LoadCommand reads one command prompt file. Frontmatter is optional; a
// present description is carried into converted artifacts.
func LoadCommand(moduleName, name, path string) (Command, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Command{}, &ValidationError{Module: moduleName, Problems: []string{fmt.Sprintf("command %q: missing %s", name, filepath.Base(path))}}
		}
		return Command{}, err
	}
	meta, body, err := SplitFrontmatter(raw)
	if err != nil {
		return Command{}, &ValidationError{Module: moduleName, Problems: []string{fmt.Sprintf("command %q: %v", name, err)}}
	}
	description, _ := meta["description"].(string)
	return Command{Name: name, Description: description, Prompt: body}, nil
}

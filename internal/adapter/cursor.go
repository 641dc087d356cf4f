package adapter

import (
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"lola/internal/module"
	"lola/pkg/adapterapi"
)

// cursorAdapter implements the converted layout: one .mdc rule file per
// skill, with the skill's frontmatter re-emitted under Cursor's rule
// schema. Fields both schemas share are carried lossless; fields absent
// from the source map to Cursor's documented defaults.
type cursorAdapter struct{}

func (cursorAdapter) Name() string { return "cursor" }

func (cursorAdapter) rulesRoot(ctx adapterapi.Context) string {
	return filepath.Join(ctx.ProjectPath, ".cursor", "rules")
}

func (cursorAdapter) commandsRoot(ctx adapterapi.Context) string {
	return filepath.Join(ctx.ProjectPath, ".cursor", "commands")
}

// cursorRule is Cursor's required rule frontmatter schema.
type cursorRule struct {
	Description string `yaml:"description"`
	Globs       string `yaml:"globs"`
	AlwaysApply bool   `yaml:"alwaysApply"`
}

func (a cursorAdapter) Skill(sk module.Skill, ctx adapterapi.Context) (adapterapi.Result, error) {
	rule := cursorRule{Description: sk.Description}

	if raw, ok := sk.Extra["globs"]; ok {
		globs, err := globsString(raw)
		if err != nil {
			return adapterapi.Result{}, &adapterapi.ConversionError{
				Assistant: a.Name(), Module: ctx.Module, Unit: sk.Name,
				Reason: fmt.Sprintf("globs: %v", err),
			}
		}
		rule.Globs = globs
	}
	if raw, ok := sk.Extra["alwaysApply"]; ok {
		b, ok := raw.(bool)
		if !ok {
			return adapterapi.Result{}, &adapterapi.ConversionError{
				Assistant: a.Name(), Module: ctx.Module, Unit: sk.Name,
				Reason: fmt.Sprintf("alwaysApply: expected bool, got %T", raw),
			}
		}
		rule.AlwaysApply = b
	}

	head, err := yaml.Marshal(rule)
	if err != nil {
		return adapterapi.Result{}, &adapterapi.ConversionError{
			Assistant: a.Name(), Module: ctx.Module, Unit: sk.Name,
			Reason: err.Error(),
		}
	}
	content := append([]byte("---\n"), head...)
	content = append(content, []byte("---\n\n")...)
	content = append(content, []byte(sk.Body)...)

	path := filepath.Join(a.rulesRoot(ctx), adapterapi.ArtifactName(ctx.Module, sk.Name)+".mdc")
	return adapterapi.Result{
		Files:   []adapterapi.FileWrite{{Path: path, Content: content}},
		Records: []adapterapi.Target{{Path: path, Kind: adapterapi.KindFile}},
	}, nil
}

func globsString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []any:
		out := ""
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("expected string entries, got %T", item)
			}
			if i > 0 {
				out += ","
			}
			out += s
		}
		return out, nil
	default:
		return "", fmt.Errorf("expected string or list, got %T", raw)
	}
}

func (a cursorAdapter) Command(cmd module.Command, ctx adapterapi.Context) (adapterapi.Result, error) {
	path := filepath.Join(a.commandsRoot(ctx), adapterapi.ArtifactName(ctx.Module, cmd.Name)+".md")
	return adapterapi.Result{
		Files:   []adapterapi.FileWrite{{Path: path, Content: []byte(cmd.Prompt)}},
		Records: []adapterapi.Target{{Path: path, Kind: adapterapi.KindFile}},
	}, nil
}

func (a cursorAdapter) SkillTargets(moduleName, skillName string, ctx adapterapi.Context) []adapterapi.Target {
	path := filepath.Join(a.rulesRoot(ctx), adapterapi.ArtifactName(moduleName, skillName)+".mdc")
	return []adapterapi.Target{{Path: path, Kind: adapterapi.KindFile}}
}

func (a cursorAdapter) CommandTargets(moduleName, commandName string, ctx adapterapi.Context) []adapterapi.Target {
	path := filepath.Join(a.commandsRoot(ctx), adapterapi.ArtifactName(moduleName, commandName)+".md")
	return []adapterapi.Target{{Path: path, Kind: adapterapi.KindFile}}
}

package adapter

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"lola/internal/config"
	"lola/internal/module"
	"lola/pkg/adapterapi"
)

// claudeAdapter implements the isolated layout: every skill becomes its
// own directory under the skills root, written by pure overwrite.
type claudeAdapter struct{}

func (claudeAdapter) Name() string { return "claude-code" }

func (claudeAdapter) skillsRoot(ctx adapterapi.Context) string {
	if ctx.Scope == string(config.ScopeProject) {
		return filepath.Join(ctx.ProjectPath, ".claude", "skills")
	}
	return filepath.Join(ctx.Home, ".claude", "skills")
}

func (claudeAdapter) commandsRoot(ctx adapterapi.Context) string {
	if ctx.Scope == string(config.ScopeProject) {
		return filepath.Join(ctx.ProjectPath, ".claude", "commands")
	}
	return filepath.Join(ctx.Home, ".claude", "commands")
}

func (a claudeAdapter) Skill(sk module.Skill, ctx adapterapi.Context) (adapterapi.Result, error) {
	dir := filepath.Join(a.skillsRoot(ctx), adapterapi.ArtifactName(ctx.Module, sk.Name))
	res := adapterapi.Result{
		Files:   []adapterapi.FileWrite{{Path: filepath.Join(dir, module.SkillFileName), Content: sk.Raw}},
		Records: []adapterapi.Target{{Path: dir, Kind: adapterapi.KindTree}},
	}
	for _, rel := range sk.AuxFiles {
		data, err := os.ReadFile(filepath.Join(sk.Dir, rel))
		if err != nil {
			return adapterapi.Result{}, fmt.Errorf("ADP_READ_AUX: %w", err)
		}
		res.Files = append(res.Files, adapterapi.FileWrite{Path: filepath.Join(dir, rel), Content: data})
	}
	return res, nil
}

func (a claudeAdapter) Command(cmd module.Command, ctx adapterapi.Context) (adapterapi.Result, error) {
	path := filepath.Join(a.commandsRoot(ctx), adapterapi.ArtifactName(ctx.Module, cmd.Name)+".md")
	content := []byte(cmd.Prompt)
	if cmd.Description != "" {
		head, err := yaml.Marshal(struct {
			Description string `yaml:"description"`
		}{cmd.Description})
		if err != nil {
			return adapterapi.Result{}, &adapterapi.ConversionError{
				Assistant: a.Name(), Module: ctx.Module, Unit: cmd.Name,
				Reason: err.Error(),
			}
		}
		content = append([]byte("---\n"), head...)
		content = append(content, []byte("---\n\n")...)
		content = append(content, []byte(cmd.Prompt)...)
	}
	return adapterapi.Result{
		Files:   []adapterapi.FileWrite{{Path: path, Content: content}},
		Records: []adapterapi.Target{{Path: path, Kind: adapterapi.KindFile}},
	}, nil
}

func (a claudeAdapter) SkillTargets(moduleName, skillName string, ctx adapterapi.Context) []adapterapi.Target {
	dir := filepath.Join(a.skillsRoot(ctx), adapterapi.ArtifactName(moduleName, skillName))
	return []adapterapi.Target{{Path: dir, Kind: adapterapi.KindTree}}
}

func (a claudeAdapter) CommandTargets(moduleName, commandName string, ctx adapterapi.Context) []adapterapi.Target {
	path := filepath.Join(a.commandsRoot(ctx), adapterapi.ArtifactName(moduleName, commandName)+".md")
	return []adapterapi.Target{{Path: path, Kind: adapterapi.KindFile}}
}

package adapter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"lola/internal/module"
	"lola/pkg/adapterapi"
)

// geminiAdapter implements the managed-section layout: every skill from
// every installed module is rendered as one marker-delimited block inside
// a single shared GEMINI.md, because Gemini CLI cannot read skill
// subdirectories. Writes replace only the block for the skill's key.
type geminiAdapter struct{}

func (geminiAdapter) Name() string { return "gemini-cli" }

func (geminiAdapter) sharedFile(ctx adapterapi.Context) string {
	return filepath.Join(ctx.ProjectPath, "GEMINI.md")
}

func (geminiAdapter) commandsRoot(ctx adapterapi.Context) string {
	return filepath.Join(ctx.ProjectPath, ".gemini", "commands")
}

// geminiPreamble explains the managed region to humans editing the file.
var geminiPreamble = []byte(
	"<!-- The marker-delimited sections below are managed by lola. -->\n" +
		"<!-- Content outside the markers is yours and is never touched. -->\n")

func (a geminiAdapter) Skill(sk module.Skill, ctx adapterapi.Context) (adapterapi.Result, error) {
	key := adapterapi.ArtifactName(ctx.Module, sk.Name)
	var b strings.Builder
	fmt.Fprintf(&b, "## Skill: %s\n\n", key)
	fmt.Fprintf(&b, "%s\n\n", sk.Description)
	b.WriteString(strings.TrimRight(sk.Body, "\n"))
	b.WriteString("\n")

	path := a.sharedFile(ctx)
	return adapterapi.Result{
		Sections: []adapterapi.SectionWrite{{Path: path, Key: key, Body: []byte(b.String()), Preamble: geminiPreamble}},
		Records:  []adapterapi.Target{{Path: path, Kind: adapterapi.KindSection, Key: key}},
	}, nil
}

// geminiCommand is the TOML schema for Gemini CLI custom commands.
type geminiCommand struct {
	Description string `toml:"description,omitempty"`
	Prompt      string `toml:"prompt"`
}

func (a geminiAdapter) Command(cmd module.Command, ctx adapterapi.Context) (adapterapi.Result, error) {
	blob, err := toml.Marshal(geminiCommand{Description: cmd.Description, Prompt: cmd.Prompt})
	if err != nil {
		return adapterapi.Result{}, &adapterapi.ConversionError{
			Assistant: a.Name(), Module: ctx.Module, Unit: cmd.Name,
			Reason: err.Error(),
		}
	}
	path := filepath.Join(a.commandsRoot(ctx), adapterapi.ArtifactName(ctx.Module, cmd.Name)+".toml")
	return adapterapi.Result{
		Files:   []adapterapi.FileWrite{{Path: path, Content: blob}},
		Records: []adapterapi.Target{{Path: path, Kind: adapterapi.KindFile}},
	}, nil
}

func (a geminiAdapter) SkillTargets(moduleName, skillName string, ctx adapterapi.Context) []adapterapi.Target {
	return []adapterapi.Target{{
		Path: a.sharedFile(ctx),
		Kind: adapterapi.KindSection,
		Key:  adapterapi.ArtifactName(moduleName, skillName),
	}}
}

func (a geminiAdapter) CommandTargets(moduleName, commandName string, ctx adapterapi.Context) []adapterapi.Target {
	path := filepath.Join(a.commandsRoot(ctx), adapterapi.ArtifactName(moduleName, commandName)+".toml")
	return []adapterapi.Target{{Path: path, Kind: adapterapi.KindFile}}
}

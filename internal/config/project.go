package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ProjectFileName is looked up in the project root.
const ProjectFileName = "tbone.yaml"

// ConditionBackbone gates a module on the optional-feature flag.
const ConditionBackbone = "backbone_support"

var knownConditions = []string{ConditionBackbone}

// Project describes what gets built: module manifest, externs and the
// optimizer download. Start from DefaultProject; the zero value is not usable.
type Project struct {
	Name      string       `yaml:"name"`
	SourceDir string       `yaml:"source_dir"`
	Modules   []ModuleSpec `yaml:"modules"`
	Externs   []string     `yaml:"externs"`
	DebugFlag string       `yaml:"debug_flag"`
	Compiler  CompilerSpec `yaml:"compiler"`
}

// ModuleSpec is one manifest entry. In YAML it is either a bare module name
// or a mapping with name and when.
type ModuleSpec struct {
	Name string `yaml:"name"`
	When string `yaml:"when,omitempty"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (m *ModuleSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*m = ModuleSpec{Name: node.Value}
		return nil
	}
	type plain ModuleSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*m = ModuleSpec(p)
	return nil
}

// CompilerSpec locates the external optimizer.
type CompilerSpec struct {
	URL string `yaml:"url"`
	Jar string `yaml:"jar"`
}

// DefaultCompilerURL is the archive the bootstrapper fetches when the jar is missing.
const DefaultCompilerURL = "http://closure-compiler.googlecode.com/files/compiler-20120917.tar.gz"

// DefaultProject returns the TBone library build definition.
func DefaultProject() Project {
	return Project{
		Name:      "tbone",
		SourceDir: "src",
		Modules: []ModuleSpec{
			{Name: "snippet/header"},
			{Name: "init"},
			{Name: "scheduler/timer"},
			{Name: "scheduler/autorun"},
			{Name: "scheduler/scope"},
			{Name: "scheduler/drainqueue"},
			{Name: "model/core/query"},
			{Name: "model/core/base"},
			{Name: "model/core/bound"},
			{Name: "model/core/async"},
			{Name: "model/core/collection"},
			{Name: "model/fancy/sync"},
			{Name: "model/fancy/ajax"},
			{Name: "model/fancy/localstorage"},
			{Name: "model/fancy/location"},
			{Name: "model/fancy/localstoragecoll"},
			{Name: "dom/template/init"},
			{Name: "dom/template/render"},
			{Name: "dom/view/hash"},
			{Name: "dom/view/base"},
			{Name: "dom/view/render"},
			{Name: "dom/view/create"},
			{Name: "export"},
			{Name: "ext/bbsupport", When: ConditionBackbone},
			{Name: "snippet/footer"},
		},
		Externs: []string{
			"externs/jquery.js",
			"externs/underscore-1.4.4.js",
			"externs/backbone-0.9.2.js",
		},
		DebugFlag: "TBONE_DEBUG",
		Compiler: CompilerSpec{
			URL: DefaultCompilerURL,
			Jar: "compiler.jar",
		},
	}
}

// LoadProject reads path and fills unset fields from DefaultProject. A missing
// file yields the defaults.
func LoadProject(path string) (Project, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultProject(), nil
	}
	if err != nil {
		return Project{}, fmt.Errorf("read project file: %w", err)
	}
	return ParseProject(data)
}

// ParseProject decodes a project file and applies defaults.
func ParseProject(data []byte) (Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Project{}, fmt.Errorf("parse project file: %w", err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (p *Project) applyDefaults() {
	def := DefaultProject()
	if p.Name == "" {
		p.Name = def.Name
	}
	if p.SourceDir == "" {
		p.SourceDir = def.SourceDir
	}
	if len(p.Modules) == 0 {
		p.Modules = def.Modules
	}
	// The optimizer always gets externs; an empty list means the defaults.
	if len(p.Externs) == 0 {
		p.Externs = def.Externs
	}
	if p.DebugFlag == "" {
		p.DebugFlag = def.DebugFlag
	}
	if p.Compiler.URL == "" {
		p.Compiler.URL = def.Compiler.URL
	}
	if p.Compiler.Jar == "" {
		p.Compiler.Jar = def.Compiler.Jar
	}
}

// Validate rejects empty module names and unknown conditions. Repeated names
// are kept as listed.
func (p Project) Validate() error {
	for i, m := range p.Modules {
		if m.Name == "" {
			return fmt.Errorf("module %d: empty name", i)
		}
		if m.When != "" && !slices.Contains(knownConditions, m.When) {
			return fmt.Errorf("module %q: unknown condition %q", m.Name, m.When)
		}
	}
	return nil
}

// Package yamldef loads component definitions from YAML:
//
//	components:
//	  - name: dataSource
//	    recipe: postgres
//	    dependencies: [config]
//	    initMethod: Open
//	    disposeMethod: Close
//	  - name: request
//	    recipe: request
//	    scope: prototype
//	aliases:
//	  db: dataSource
//
// Recipes are looked up by name in a Recipes table supplied by the caller.
package yamldef

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danpasecinic/thimble"
	"github.com/danpasecinic/thimble/internal/reflect"
)

var ErrUnknownRecipe = errors.New("unknown recipe")

type Document struct {
	Components []Component       `yaml:"components" validate:"required,dive"`
	Aliases    map[string]string `yaml:"aliases" validate:"dive,keys,required,endkeys,required"`
}

type Component struct {
	Name          string   `yaml:"name" validate:"required"`
	Recipe        string   `yaml:"recipe" validate:"required"`
	Scope         string   `yaml:"scope" validate:"omitempty,oneof=singleton prototype"`
	Lazy          bool     `yaml:"lazy"`
	Dependencies  []string `yaml:"dependencies" validate:"dive,required"`
	InitMethod    string   `yaml:"initMethod"`
	DisposeMethod string   `yaml:"disposeMethod"`
}

// Recipes maps the recipe names used in a document to constructors.
type Recipes map[string]thimble.Recipe

var validate = validator.New()

// Parse decodes and validates a document. Unknown keys are rejected.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document")
		}
		return nil, fmt.Errorf("failed to decode definitions: %w", err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

func LoadFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	doc, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Validate checks field rules and that component names are unique.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid definitions: %s", formatValidationError(err))
	}

	seen := make(map[string]bool, len(d.Components))
	for _, c := range d.Components {
		if seen[c.Name] {
			return fmt.Errorf("invalid definitions: component %s is defined twice", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", e.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", e.Namespace(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", e.Namespace(), e.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// RecipeNames lists the distinct recipe names the document refers to.
func (d *Document) RecipeNames() []string {
	set := make(map[string]bool)
	for _, c := range d.Components {
		set[c.Recipe] = true
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions converts the document using recipes. Every recipe the document
// names must be present.
func (d *Document) Definitions(recipes Recipes) ([]thimble.Definition, error) {
	defs := make([]thimble.Definition, 0, len(d.Components))
	for _, c := range d.Components {
		def, err := c.definition(recipes)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (c Component) definition(recipes Recipes) (thimble.Definition, error) {
	recipe, ok := recipes[c.Recipe]
	if !ok {
		return thimble.Definition{}, fmt.Errorf("component %s: %w %q", c.Name, ErrUnknownRecipe, c.Recipe)
	}

	scope, err := thimble.ParseScope(c.Scope)
	if err != nil {
		return thimble.Definition{}, fmt.Errorf("component %s: %w", c.Name, err)
	}

	def := thimble.Definition{
		Name:         c.Name,
		Recipe:       recipe,
		Dependencies: c.Dependencies,
		Scope:        scope,
		Lazy:         c.Lazy,
	}
	if c.InitMethod != "" {
		def.Init = methodCall(c.InitMethod)
	}
	if c.DisposeMethod != "" {
		def.Dispose = methodCall(c.DisposeMethod)
	}
	return def, nil
}

func methodCall(name string) thimble.LifecycleFunc {
	return func(ctx context.Context, instance any) error {
		return reflect.CallMethod(ctx, instance, name)
	}
}

// Module returns a module holding the document's definitions and aliases.
func (d *Document) Module(name string, recipes Recipes) (*thimble.Module, error) {
	defs, err := d.Definitions(recipes)
	if err != nil {
		return nil, err
	}

	m := thimble.NewModule(name)
	for _, def := range defs {
		m.Define(def)
	}

	aliases := make([]string, 0, len(d.Aliases))
	for alias := range d.Aliases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		m.Alias(alias, d.Aliases[alias])
	}
	return m, nil
}

// Apply defines the document's components and aliases on c.
func (d *Document) Apply(c *thimble.Container, recipes Recipes) error {
	m, err := d.Module("yamldef", recipes)
	if err != nil {
		return err
	}
	return c.Apply(m)
}

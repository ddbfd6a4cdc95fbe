package yamldef

import (
	"context"

	"github.com/danpasecinic/thimble"
)

// Stub stands in for a real component when a document is inspected without
// its recipes.
type Stub struct {
	Component    string
	Dependencies map[string]any
}

// StubRecipes returns a recipe for every recipe name in the document, each
// producing a Stub.
func (d *Document) StubRecipes() Recipes {
	recipes := make(Recipes)
	for _, name := range d.RecipeNames() {
		recipes[name] = stubRecipe
	}
	return recipes
}

func stubRecipe(context.Context, thimble.Resolver) (any, error) {
	return &Stub{Dependencies: make(map[string]any)}, nil
}

// StubInjector records dependencies on a Stub. It is meant to be used as the
// container default injector together with StubRecipes.
func StubInjector(_ context.Context, instance any, dependency string, value any) error {
	if s, ok := instance.(*Stub); ok {
		s.Dependencies[dependency] = value
	}
	return nil
}

func (s *Stub) SetComponentName(name string) {
	s.Component = name
}

package modules

import (
	"context"

	"github.com/kingrea/slayer-suite/internal/modules/design"
	"github.com/kingrea/slayer-suite/internal/modules/mapping"
	"github.com/kingrea/slayer-suite/internal/modules/preview"
	"github.com/kingrea/slayer-suite/internal/suite"
)

// Builtins holds the editors shipped with the suite.
type Builtins struct {
	Mapping *mapping.MappingModule
	Design  *design.DesignModule
	Preview *preview.PreviewModule
}

// RegisterBuiltins installs the built-in editors into s in their canonical
// order: mapping, design, preview.
func RegisterBuiltins(ctx context.Context, s *suite.Suite) (Builtins, error) {
	var b Builtins
	var err error
	if b.Mapping, err = mapping.Register(ctx, s.Registry, s.Router); err != nil {
		return Builtins{}, err
	}
	if b.Design, err = design.Register(ctx, s.Registry, s.Router,
		design.WithSignTypes(s.Catalog),
		design.WithLogger(s.Logger),
	); err != nil {
		return Builtins{}, err
	}
	if b.Preview, err = preview.Register(ctx, s.Registry, s.Router,
		preview.WithLogger(s.Logger),
		preview.WithStatusWriter(b.Mapping),
	); err != nil {
		return Builtins{}, err
	}
	return b, nil
}

package plugins

import (
	"errors"
	"fmt"

	"github.com/kingrea/slayer-suite/internal/config"
	"github.com/kingrea/slayer-suite/internal/domain"
)

// Catalog is the slice of the shared sign-type catalog seeding needs.
type Catalog interface {
	Get(code string) (domain.SignTypeDescriptor, bool)
	Put(desc domain.SignTypeDescriptor, source string) (domain.SignTypeDescriptor, error)
}

// SeedResult reports what SeedCatalog did with each declared code.
type SeedResult struct {
	// Added lists codes inserted into the catalog, in file order.
	Added []string
	// Existing lists codes the catalog already held; they are left untouched.
	Existing []string
	// Origins maps every declared code to the file that declared it.
	Origins map[string]string
}

// SeedCatalog loads the catalog plugins under dir and inserts their sign
// types into cat under source. Invalid entries and codes declared by more
// than one file are skipped and reported in the returned error; the rest are
// still inserted. Failing to read or interpret a file aborts seeding.
func SeedCatalog(cat Catalog, dir, source string) (SeedResult, error) {
	result := SeedResult{Origins: map[string]string{}}
	if cat == nil {
		return result, nil
	}
	files, err := LoadDir(dir)
	if err != nil {
		return result, err
	}
	var errs []error
	for _, file := range files {
		descs, invalid := file.Definition.Descriptors()
		if invalid != nil {
			errs = append(errs, fmt.Errorf("plugin: %s: %w", file.Path, invalid))
		}
		for _, desc := range descs {
			if existing, ok := result.Origins[desc.Code]; ok {
				errs = append(errs, fmt.Errorf("plugin: duplicate sign type %s (%s and %s)", desc.Code, existing, file.Path))
				continue
			}
			result.Origins[desc.Code] = file.Path
			if _, ok := cat.Get(desc.Code); ok {
				result.Existing = append(result.Existing, desc.Code)
				continue
			}
			if _, err := cat.Put(desc, source); err != nil {
				errs = append(errs, fmt.Errorf("plugin: insert %s from %s: %w", desc.Code, file.Path, err))
				continue
			}
			result.Added = append(result.Added, desc.Code)
		}
	}
	return result, errors.Join(errs...)
}

// SeedFromConfig seeds cat from the catalog directory configured for the project.
func SeedFromConfig(cat Catalog, cfg *config.Config, source string) (SeedResult, error) {
	if cfg == nil {
		return SeedResult{Origins: map[string]string{}}, nil
	}
	return SeedCatalog(cat, cfg.CatalogDir(), source)
}

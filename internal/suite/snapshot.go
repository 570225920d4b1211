package suite

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/kingrea/slayer-suite/internal/domain"
	"github.com/kingrea/slayer-suite/internal/eventbridge"
	"github.com/kingrea/slayer-suite/internal/module"
)

// SourceUndo marks store writes made while restoring a history entry.
const SourceUndo = "undo"

// Snapshot is one undo entry: every module's exported data plus the shared
// sign-type catalog, each held as JSON so entries are immutable once taken.
type Snapshot struct {
	Apps      map[string]json.RawMessage `json:"apps" cbor:"apps"`
	SignTypes json.RawMessage            `json:"signTypes" cbor:"signTypes"`
}

// Snapshot captures the current state. A module whose export fails is left
// out and keeps its state on restore.
func (s *Suite) Snapshot() (Snapshot, error) {
	snap := Snapshot{Apps: map[string]json.RawMessage{}}
	for _, entry := range s.Registry.Entries() {
		var data module.Data
		err := module.SafeCall(entry.Name+".ExportData", func() error {
			var exportErr error
			data, exportErr = entry.Module.ExportData()
			return exportErr
		})
		if err != nil {
			s.Logger.Warnf("snapshot: skip %s: %v", entry.Name, err)
			continue
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return Snapshot{}, fmt.Errorf("suite: snapshot %s: %w", entry.Name, err)
		}
		snap.Apps[entry.Name] = raw
	}
	types, err := json.Marshal(s.Catalog.List())
	if err != nil {
		return Snapshot{}, fmt.Errorf("suite: snapshot sign types: %w", err)
	}
	snap.SignTypes = types
	return snap, nil
}

// Restore feeds snap back into the modules and the catalog. Every module is
// attempted; the failures are joined. The other modules are then told the
// project was restored so derived views can re-pull.
func (s *Suite) Restore(snap Snapshot) error {
	names := make([]string, 0, len(snap.Apps))
	for name := range snap.Apps {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		mod, ok := s.Registry.Lookup(name)
		if !ok {
			continue
		}
		var data module.Data
		if err := json.Unmarshal(snap.Apps[name], &data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if err := module.SafeCall(name+".ImportData", func() error { return mod.ImportData(data) }); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(snap.SignTypes) > 0 {
		var list []domain.SignTypeDescriptor
		if err := json.Unmarshal(snap.SignTypes, &list); err != nil {
			errs = append(errs, fmt.Errorf("sign types: %w", err))
		} else if err := s.Catalog.Replace(list, SourceUndo); err != nil {
			errs = append(errs, err)
		}
	}
	s.announceRestore(SourceUndo)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("suite: restore: %w", err)
	}
	return nil
}

func (s *Suite) announceRestore(reason string) {
	report := s.Router.EmitSyncEvent(eventbridge.ProjectRestored, map[string]any{"reason": reason}, Source)
	for _, failure := range report.Failures {
		s.Logger.Warnf("restore: %s did not refresh: %v", failure.Module, failure.Err)
	}
}

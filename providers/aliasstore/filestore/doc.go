// Package filestore keeps an alias table in a YAML or JSON file, the format
// chosen by extension. Files are validated against a JSON Schema on load,
// and Watch merges external edits into a live registry.
//
// Example usage:
//
//	store, err := filestore.New("aliases.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := aliasstore.Restore(ctx, store, p.Registry()); err != nil {
//	    return err
//	}
//	defer aliasstore.Persist(ctx, store, p.Registry())
package filestore

// Package record defines the tasting record and everything needed to
// construct one safely: drafts, patches, score composition, validation
// and the error taxonomy shared by the store and its callers.
//
// TastingRecord is a closed type. Mode-specific sub-structures (brew
// recipe, lab measurement) are explicit optional fields, and anything
// that does not fit the mode is rejected with a *ValidationError before
// it reaches storage.
//
// Score composition:
//
//	total = round(0.6*flavor + 0.4*sensory)
//
// The total is never settable on its own. A draft may carry a total, but
// it must agree with the composition; patches only touch the components.
package record

// Package revision manages deployable revisions of an artifact stored in an
// object store.
//
// Candidate artifacts live at <prefix><revision><suffix>; the live artifact is a
// copy at a fixed active key. A Catalog lists candidates and marks the ones
// whose content fingerprint matches the active object. An Activator promotes a
// revision by issuing one server-side copy onto the active key.
//
// Concurrent activations against the same active key are not coordinated:
// the last copy to complete wins.
package revision

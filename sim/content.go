package sim

// ContentID identifies one content item. The empty string is reserved for
// label-only requests that do not name a specific item.
type ContentID string

// ContentRef is the single representation of "what is being requested or
// stored": either a plain content identifier, or an identifier qualified by
// topic labels (possibly with an empty identifier, meaning the request is
// resolved by labels alone). Strategies and the query facade always speak
// ContentRef, so the id-vs-map ambiguity of ad hoc keys is resolved once
// here instead of branched on throughout the code.
type ContentRef struct {
	ID     ContentID
	Labels []string
}

// PlainID wraps a bare content identifier with no label qualification.
func PlainID(id ContentID) ContentRef {
	return ContentRef{ID: id, Labels: []string{}}
}

// LabeledRequest builds a reference carrying both an identifier (possibly
// empty) and the labels qualifying the request. Callers must pass an
// explicit, possibly empty, label slice.
func LabeledRequest(id ContentID, labels []string) ContentRef {
	if labels == nil {
		labels = []string{}
	}
	return ContentRef{ID: id, Labels: labels}
}

// ByLabelsOnly reports whether the reference names no specific content item
// and must be resolved through label discovery.
func (r ContentRef) ByLabelsOnly() bool {
	return r.ID == ""
}

package domain

// CanonicalResult is the outcome of resolving a raw URL to its canonical
// identity. Status is CanonicalFailed when redirect resolution could not
// confirm a final destination; CanonicalURL then falls back to the
// normalized original and the link must be flagged for manual review.
type CanonicalResult struct {
	CanonicalURL  string          `json:"canonical_url"`
	Domain        string          `json:"domain"`
	BaseDomain    string          `json:"base_domain"`
	Status        CanonicalStatus `json:"status"`
	Error         string          `json:"error,omitempty"`
	RedirectChain []string        `json:"redirect_chain,omitempty"`
}

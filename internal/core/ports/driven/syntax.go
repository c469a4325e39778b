package driven

import "context"

// SyntaxComparator flags sentences whose part-of-speech pattern is
// unusual for the corpus. This is an optional external collaborator -
// when nil, the syntax signal is simply absent from diagnosis.
type SyntaxComparator interface {
	// Compare reports whether the sentence's POS-pattern signature is
	// an outlier, with a human-readable explanation when it is.
	Compare(ctx context.Context, sentence string) (outlier bool, explanation string, err error)
}

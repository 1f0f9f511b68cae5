// Package consolidate merges extracted concept candidates into the persistent
// concept graph, one atomic transaction per paper.
package consolidate

import "errors"

// ErrRejected marks a candidate that failed validation. Rejections are
// per-candidate: the candidate is skipped and the rest of the paper proceeds.
var ErrRejected = errors.New("candidate rejected")

// errResolution marks a candidate whose concept row could not be resolved
// even after re-query. Like a rejection it skips only the candidate.
var errResolution = errors.New("concept resolution failed")

// ErrNoConceptsStored aborts a paper's transaction when no candidate survived
// to storage. The rollback leaves the paper unprocessed so a later run can
// retry it.
var ErrNoConceptsStored = errors.New("no concepts stored for paper")

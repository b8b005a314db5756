// Package matching turns one fingerprint submission into a visitor identity
// decision and persists the outcome.
//
// The Engine evaluates six layers strictly in order, first hit wins: exact
// hash, stable hash, GPU timing hash, near-miss over recent stable hashes,
// near-miss over recent fuzzy hashes, and finally new-visitor creation. Each
// matched layer carries a base confidence that the trust scorer then gates or
// boosts using the visitor's recent session history. A valid persistent
// identity token pins the resulting visitor id and suppresses creation.
//
// Every accepted submission writes exactly one session row; match layers 2-5
// also store the newly observed fingerprint under the matched visitor. Daily
// statistics and the cached trust attributes are updated asynchronously and
// never fail the request.
package matching

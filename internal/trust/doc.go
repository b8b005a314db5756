// Package trust derives a crowd-blending score from a visitor's recent
// session history. The score rises with repeat visits, IP diversity, and the
// span of days the visits cover; the matching engine uses it to gate weak
// fuzzy matches and to boost confidence on corroborated ones. The scorer is
// read-only; the cached trust attributes on a visitor row are refreshed by
// the engine after each decision.
package trust

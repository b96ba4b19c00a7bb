// Package cooldown throttles calls so that at least a fixed interval passes
// between two successful invocations.
//
// A Limiter wraps a token bucket with a burst of one. A call that arrives
// too early is rejected with a *RateLimitedError carrying the remaining
// wait; the rejection itself does not push the next allowed time further
// out. Calls made with a context from WithoutCooldown skip the check and
// are not recorded, which lets maintenance work such as priming a freshly
// created agent run without eating into the user's budget.
package cooldown

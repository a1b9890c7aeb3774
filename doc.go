// Package authflow drives multi-step authentication forms against a hosted
// auth capability: sign-in, sign-up with email verification, and the
// forgot-password reset dance, modeled as explicit step transitions.
//
// The package does not authenticate anyone itself. Credential validation,
// verification token generation, and session issuance belong to the external
// capability reached through the [Capability] interface; authflow owns only
// which step a form is on, what gets submitted for that step, and the fixed
// user-facing message shown when the capability rejects a submission.
//
// # Architecture boundaries
//
// authflow is the public surface. It exposes [Flows], [Builder], [Config],
// the [Step] union, and the per-form controllers ([SignInController],
// [SignUpController]). Outbound delivery of verification codes lives in the
// dispatch sub-package; session token inspection lives in the session
// sub-package. Neither imports this package's controllers.
//
// # What this package must NOT do
//
//   - Interpret or classify capability rejections. Every rejection of a step
//     collapses into that step's one generic message so that account
//     existence cannot be probed through error text.
//   - Store credentials. A [Submission] is built per submit call, handed to
//     the capability, and dropped; nothing from it is retained.
//   - Retry. A failed submission is terminal for that submit call; the user
//     resubmits.
//
// # Concurrency contract
//
// A controller models a single form instance driven by a single logical
// thread of user interaction. Submit holds an explicit single-slot in-flight
// guard: a second Submit while one is outstanding fails with
// [ErrSubmitInFlight] without reaching the capability. Distinct controllers
// are independent and carry no ordering guarantees between each other.
package authflow

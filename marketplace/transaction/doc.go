// Package transaction models one marketplace deal between a starter and a
// listing author and governs its lifecycle.
//
// Core flow:
//   - StateMachine validates and executes lifecycle transitions against an
//     append-only transition log.
//   - Transaction is the aggregate root binding the state machine to the
//     listing, booking, conversation, payment, and testimonial context, and
//     exposes the participant-relative derived queries.
//   - Feedback queries report, per participant, whether feedback is present,
//     skipped, or still owed.
//
// The package enforces deterministic behavior using typed domain errors.
package transaction

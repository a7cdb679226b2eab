package transaction

import "time"

// Testimonial is a feedback record authored by one participant about the
// transaction. Created by participants outside this core; read here to
// determine feedback completeness.
type Testimonial struct {
	ID            string
	TransactionID string
	AuthorID      string
	Grade         float64
	Text          string
	CreatedAt     time.Time
}

// TestimonialFromAuthor returns the listing author's testimonial, or nil.
func (t *Transaction) TestimonialFromAuthor() *Testimonial {
	return t.testimonialBy(t.AuthorID())
}

// TestimonialFromStarter returns the starter's testimonial, or nil.
func (t *Transaction) TestimonialFromStarter() *Testimonial {
	return t.testimonialBy(t.StarterID)
}

func (t *Transaction) testimonialBy(personID string) *Testimonial {
	for i := range t.Testimonials {
		if t.Testimonials[i].AuthorID == personID {
			return &t.Testimonials[i]
		}
	}

	return nil
}

// HasFeedbackFrom reports whether a testimonial authored by the given
// participant exists. Identity resolves against the listing author first;
// any other identity reads the starter's slot.
func (t *Transaction) HasFeedbackFrom(personID string) bool {
	if personID == t.AuthorID() {
		return t.TestimonialFromAuthor() != nil
	}

	return t.TestimonialFromStarter() != nil
}

// FeedbackSkippedBy reports whether the given participant's role has opted
// out of leaving feedback.
func (t *Transaction) FeedbackSkippedBy(personID string) bool {
	if personID == t.AuthorID() {
		return t.AuthorSkippedFeedback
	}

	return t.StarterSkippedFeedback
}

// WaitingFeedbackFrom reports whether the given participant still owes
// feedback: no testimonial exists and the role's skip flag is not set.
func (t *Transaction) WaitingFeedbackFrom(personID string) bool {
	return !t.HasFeedbackFrom(personID) && !t.FeedbackSkippedBy(personID)
}

// HasFeedbackFromBothParticipants reports whether both the author and the
// starter have left a testimonial.
func (t *Transaction) HasFeedbackFromBothParticipants() bool {
	return t.TestimonialFromAuthor() != nil && t.TestimonialFromStarter() != nil
}

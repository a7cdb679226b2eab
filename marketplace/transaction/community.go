package transaction

// CommunityRef is a plain-value Community implementation for callers that
// already hold the community's identity and gateway selection.
type CommunityRef struct {
	CommunityID string
	Gateway     string
}

var _ Community = CommunityRef{}

// ID returns the community identity.
func (c CommunityRef) ID() string {
	return c.CommunityID
}

// PaymentGateway returns the community's configured gateway, or empty when
// the community moves no money.
func (c CommunityRef) PaymentGateway() string {
	return c.Gateway
}

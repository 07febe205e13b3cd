package types

// VoteRecord is one account's current allocation of voting power to a votable
// object hosted by an external platform contract. The wire shape is the
// ledger's votable-object view: the platform arrives as "votable_contract"
// and the object as "id".
type VoteRecord struct {
	VotableObjectID    VotableObjectID `json:"id"`
	PlatformContractID AccountID       `json:"votable_contract"`
	CurrentVotes       Amount          `json:"current_votes"`
}

// Package permit is the durable allow-list of conversations granted
// elevated access.
package permit

// Store is the permission contract. IsApproved reads durable state fresh
// on every call and fails closed: any storage problem counts as "not
// approved". Grant is idempotent and must be durable before it returns so
// a subsequent IsApproved in the same process observes the write.
type Store interface {
	IsApproved(conversationID string) bool
	Grant(conversationID string) error
}

package engine

import "context"

// Store persists entities that passed validation and enumerates the
// relationships of bound nodes.
//
// CreateNode and CreateRelationship must set the entity's ID. Inbound returns
// relationships ending at the node, Outbound those starting at it; the engine
// replaces the endpoint that is the node itself with the node being validated.
//
// Timeouts and retries are the store's concern; the engine calls each method
// once.
type Store interface {
	CreateNode(ctx context.Context, n *Node) error
	UpdateNode(ctx context.Context, n *Node) error
	CreateRelationship(ctx context.Context, r *Relationship) error
	UpdateRelationship(ctx context.Context, r *Relationship) error
	Inbound(ctx context.Context, n *Node) ([]*Relationship, error)
	Outbound(ctx context.Context, n *Node) ([]*Relationship, error)
}

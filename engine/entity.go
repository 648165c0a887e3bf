package engine

// Kind identifies the concrete type of an Entity.
type Kind int

const (
	KindNode Kind = iota + 1
	KindRelationship
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindRelationship:
		return "relationship"
	default:
		return "unknown"
	}
}

// Entity is a node or relationship submitted for validation.
type Entity interface {
	Kind() Kind
}

// Node is a labelled property node.
type Node struct {
	// ID is the element id assigned by the store. A node with an ID is bound:
	// it already exists and is updated rather than created.
	ID string

	Labels     []string
	Properties map[string]any
}

// NewNode returns an unbound node.
func NewNode(labels []string, properties map[string]any) *Node {
	if properties == nil {
		properties = make(map[string]any)
	}

	return &Node{Labels: labels, Properties: properties}
}

// Kind implements Entity.
func (n *Node) Kind() Kind { return KindNode }

// Bound reports whether the node already exists in the store.
func (n *Node) Bound() bool { return n.ID != "" }

// Relationship is a typed, directed edge from Start to End.
type Relationship struct {
	// ID is the element id assigned by the store; see Node.ID.
	ID string

	Type       string
	Start      *Node
	End        *Node
	Properties map[string]any
}

// NewRelationship returns an unbound relationship.
func NewRelationship(start *Node, relType string, end *Node, properties map[string]any) *Relationship {
	if properties == nil {
		properties = make(map[string]any)
	}

	return &Relationship{Type: relType, Start: start, End: end, Properties: properties}
}

// Kind implements Entity.
func (r *Relationship) Kind() Kind { return KindRelationship }

// Bound reports whether the relationship already exists in the store.
func (r *Relationship) Bound() bool { return r.ID != "" }

// Endpoint selects a relationship endpoint.
type Endpoint int

const (
	EndpointNone Endpoint = iota
	EndpointStart
	EndpointEnd
)
